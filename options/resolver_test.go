package options

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formflow/formflow-go/form"
)

func TestResolvePriorityOrder(t *testing.T) {
	registry := Builtin()
	registry.Register(&QuestionType{
		Slug:      "select",
		Name:      "Dropdown",
		InputKind: "select",
		DefaultOptions: form.LocalizedOptions{
			"en": {{Value: "type-default", Label: "Type default"}},
		},
	})
	r := NewResolver(registry, "en")

	conditional := &form.ConditionalLogic{
		Rules: []*form.Rule{{
			Conditions: []*form.Condition{{QuestionSlug: "trigger", Operator: "equals", Value: "on"}},
			Actions: []*form.Action{{
				Type:    "set_options",
				Options: form.LocalizedOptions{"en": {{Value: "dynamic", Label: "Dynamic"}}},
			}},
		}},
	}

	t.Run("conditional options win", func(t *testing.T) {
		q := &form.Question{
			Slug: "q", Type: "select",
			Options: form.LocalizedOptions{"en": {{Value: "static", Label: "Static"}}},
			Logic:   conditional,
		}
		opts := r.Resolve(q, form.AnswerMap{"trigger": "on"})
		assert.Equal(t, "dynamic", opts[0].Value)
	})

	t.Run("static options when no rule matches", func(t *testing.T) {
		q := &form.Question{
			Slug: "q", Type: "select",
			Options: form.LocalizedOptions{"en": {{Value: "static", Label: "Static"}}},
			Logic:   conditional,
		}
		opts := r.Resolve(q, form.AnswerMap{})
		assert.Equal(t, "static", opts[0].Value)
	})

	t.Run("type defaults when question has none", func(t *testing.T) {
		q := &form.Question{Slug: "q", Type: "select"}
		opts := r.Resolve(q, form.AnswerMap{})
		assert.Equal(t, "type-default", opts[0].Value)
	})

	t.Run("yes-no builtin fallback", func(t *testing.T) {
		q := &form.Question{Slug: "q", Type: "yes-no"}
		opts := r.Resolve(q, form.AnswerMap{})
		assert.Equal(t, []form.Option{{Label: "Yes", Value: "yes"}, {Label: "No", Value: "no"}}, opts)
	})

	t.Run("optionless type yields empty list", func(t *testing.T) {
		q := &form.Question{Slug: "q", Type: "text"}
		assert.Empty(t, r.Resolve(q, form.AnswerMap{}))
	})
}

func TestResolveUnknownTypeWarns(t *testing.T) {
	r := NewResolver(Builtin(), "en")
	var warned string
	r.Warn = func(format string, args ...any) { warned = format }

	opts := r.Resolve(&form.Question{Slug: "q", Type: "starship"}, form.AnswerMap{})
	assert.Empty(t, opts)
	assert.Contains(t, warned, "not registered")
}

func TestResolveLanguageFallback(t *testing.T) {
	r := NewResolver(Builtin(), "de")
	q := &form.Question{
		Slug: "q", Type: "select",
		Options: form.LocalizedOptions{
			"en": {{Value: "a", Label: "A"}},
			"fr": {{Value: "a", Label: "Ah"}},
		},
	}
	opts := r.Resolve(q, form.AnswerMap{})
	assert.Equal(t, "A", opts[0].Label, "missing language falls back to en")
}
