package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow-go/form"
)

// petForm builds the canonical two-page fixture: has-pet on page 1 controls
// pet-name on page 2 (shown only for "yes", hidden by default).
func petForm() *form.Definition {
	return &form.Definition{
		Slug: "pet-survey",
		Pages: []*form.Page{
			{
				Slug: "page-1",
				Questions: []*form.Question{
					{Slug: "has-pet", Type: "radio", Required: true},
				},
			},
			{
				Slug: "page-2",
				Questions: []*form.Question{
					{
						Slug: "pet-name", Type: "text", Required: true,
						Logic: &form.ConditionalLogic{
							Rules: []*form.Rule{{
								Conditions: []*form.Condition{{QuestionSlug: "has-pet", Operator: "equals", Value: "yes"}},
								Actions:    []*form.Action{{Type: "show"}, {Type: "require"}},
							}},
							DefaultAction: "hide",
						},
					},
				},
			},
		},
	}
}

func TestVisibleQuestionsCrossPageCondition(t *testing.T) {
	def := petForm()
	n := NewNavigator(def, "en")
	page2 := def.Pages[1]

	assert.Empty(t, n.VisibleQuestions(page2, form.AnswerMap{}), "unanswered trigger hides pet-name")

	visible := n.VisibleQuestions(page2, form.AnswerMap{"has-pet": "yes"})
	require.Len(t, visible, 1)
	assert.Equal(t, "pet-name", visible[0].Slug)

	assert.Empty(t, n.VisibleQuestions(page2, form.AnswerMap{"has-pet": "no"}))
}

func TestVisibleQuestionsFlattensGroups(t *testing.T) {
	page := &form.Page{
		Slug:      "p",
		Questions: []*form.Question{{Slug: "direct", Type: "text"}},
		QuestionGroups: []*form.QuestionGroup{
			{Slug: "g", Questions: []*form.Question{{Slug: "grouped", Type: "text"}}},
		},
	}
	n := NewNavigator(&form.Definition{Slug: "f", Pages: []*form.Page{page}}, "en")

	var slugs []string
	for _, q := range n.VisibleQuestions(page, form.AnswerMap{}) {
		slugs = append(slugs, q.Slug)
	}
	assert.Equal(t, []string{"direct", "grouped"}, slugs)
}

func TestCanAdvanceRequiredGating(t *testing.T) {
	def := petForm()
	n := NewNavigator(def, "en")
	page1 := def.Pages[0]

	assert.False(t, n.CanAdvance(page1, form.AnswerMap{}))
	assert.True(t, n.CanAdvance(page1, form.AnswerMap{"has-pet": "yes"}))
}

// A required question hidden by logic never blocks the page, whatever its
// static flag says.
func TestHiddenRequiredQuestionNeverBlocks(t *testing.T) {
	def := petForm()
	n := NewNavigator(def, "en")
	page2 := def.Pages[1]

	assert.True(t, n.CanAdvance(page2, form.AnswerMap{"has-pet": "no"}),
		"pet-name is hidden, so its required flag is ignored")
	assert.False(t, n.CanAdvance(page2, form.AnswerMap{"has-pet": "yes"}),
		"visible and required with no answer blocks")
	assert.True(t, n.CanAdvance(page2, form.AnswerMap{"has-pet": "yes", "pet-name": "Rex"}))
}

func TestValidatePageReportsPerQuestionReasons(t *testing.T) {
	def := petForm()
	n := NewNavigator(def, "en")

	result := n.ValidatePage(def.Pages[0], form.AnswerMap{})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "has-pet", result.Errors[0].QuestionSlug)
	assert.Equal(t, "required", result.Errors[0].Reason)
}

func TestValidateValueRules(t *testing.T) {
	def := &form.Definition{
		Slug: "f",
		Pages: []*form.Page{{
			Slug: "p",
			Questions: []*form.Question{
				{Slug: "email", Type: "email", Validation: &form.Validation{Email: true}},
				{Slug: "bio", Type: "textarea", Validation: &form.Validation{MinLength: 5, MaxLength: 10}},
			},
		}},
	}
	n := NewNavigator(def, "en")
	page := def.Pages[0]

	t.Run("unanswered optional questions pass", func(t *testing.T) {
		assert.True(t, n.ValidatePage(page, form.AnswerMap{}).Valid)
	})

	t.Run("bad email", func(t *testing.T) {
		result := n.ValidatePage(page, form.AnswerMap{"email": "not-an-email"})
		require.False(t, result.Valid)
		assert.Equal(t, "email", result.Errors[0].QuestionSlug)
	})

	t.Run("length bounds", func(t *testing.T) {
		assert.False(t, n.ValidatePage(page, form.AnswerMap{"bio": "hey"}).Valid)
		assert.False(t, n.ValidatePage(page, form.AnswerMap{"bio": "way way too long"}).Valid)
		assert.True(t, n.ValidatePage(page, form.AnswerMap{"bio": "just so"}).Valid)
	})

	t.Run("length bounds count runes not bytes", func(t *testing.T) {
		// Six characters but twelve bytes: inside the bounds, though a
		// byte count would put it over MaxLength.
		assert.True(t, n.ValidatePage(page, form.AnswerMap{"bio": "éééééé"}).Valid)
		// Three characters but six bytes: under MinLength, though a byte
		// count would let it pass.
		assert.False(t, n.ValidatePage(page, form.AnswerMap{"bio": "ééé"}).Valid)
	})
}

func TestValidateFormCoversAllPages(t *testing.T) {
	def := petForm()
	n := NewNavigator(def, "en")

	result := n.ValidateForm(form.AnswerMap{"has-pet": "yes"})
	require.False(t, result.Valid)
	assert.Equal(t, "pet-name", result.Errors[0].QuestionSlug)

	assert.True(t, n.ValidateForm(form.AnswerMap{"has-pet": "yes", "pet-name": "Rex"}).Valid)
	assert.True(t, n.ValidateForm(form.AnswerMap{"has-pet": "no"}).Valid)
}
