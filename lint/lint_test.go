package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/options"
)

func defWith(questions ...*form.Question) *form.Definition {
	return &form.Definition{
		Slug:  "f",
		Pages: []*form.Page{{Slug: "p", Questions: questions}},
	}
}

func codes(issues []Issue) []string {
	var out []string
	for _, issue := range issues {
		out = append(out, issue.Code)
	}
	return out
}

func TestLintCleanFormHasNoIssues(t *testing.T) {
	def := defWith(
		&form.Question{Slug: "has-pet", Type: "radio"},
		&form.Question{Slug: "pet-name", Type: "text", Logic: &form.ConditionalLogic{
			Rules: []*form.Rule{{
				Conditions: []*form.Condition{{QuestionSlug: "has-pet", Operator: "equals", Value: "yes"}},
				Actions:    []*form.Action{{Type: "show"}},
			}},
		}},
	)
	assert.Empty(t, LintForm(def, options.Builtin()))
}

func TestLintDuplicateSlugIsError(t *testing.T) {
	def := defWith(
		&form.Question{Slug: "twin", Type: "text"},
		&form.Question{Slug: "twin", Type: "text"},
	)
	issues := LintForm(def, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, CodeDuplicateSlug, issues[0].Code)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.True(t, HasErrors(issues))
}

func TestLintRuleChecks(t *testing.T) {
	tests := []struct {
		name  string
		logic *form.ConditionalLogic
		want  string
	}{
		{
			name: "unknown reference",
			logic: &form.ConditionalLogic{Rules: []*form.Rule{{
				Conditions: []*form.Condition{{QuestionSlug: "ghost", Operator: "equals", Value: "x"}},
				Actions:    []*form.Action{{Type: "show"}},
			}}},
			want: CodeUnknownReference,
		},
		{
			name: "unknown operator",
			logic: &form.ConditionalLogic{Rules: []*form.Rule{{
				Conditions: []*form.Condition{{QuestionSlug: "anchor", Operator: "matches", Value: "x"}},
				Actions:    []*form.Action{{Type: "show"}},
			}}},
			want: CodeUnknownOperator,
		},
		{
			name: "unknown action",
			logic: &form.ConditionalLogic{Rules: []*form.Rule{{
				Conditions: []*form.Condition{{QuestionSlug: "anchor", Operator: "equals", Value: "x"}},
				Actions:    []*form.Action{{Type: "detonate"}},
			}}},
			want: CodeUnknownAction,
		},
		{
			name:  "empty rule",
			logic: &form.ConditionalLogic{Rules: []*form.Rule{{}}},
			want:  CodeEmptyRule,
		},
		{
			name: "self reference",
			logic: &form.ConditionalLogic{Rules: []*form.Rule{{
				Conditions: []*form.Condition{{QuestionSlug: "subject", Operator: "is_empty"}},
				Actions:    []*form.Action{{Type: "hide"}},
			}}},
			want: CodeSelfReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := defWith(
				&form.Question{Slug: "anchor", Type: "text"},
				&form.Question{Slug: "subject", Type: "text", Logic: tt.logic},
			)
			issues := LintForm(def, nil)
			assert.Contains(t, codes(issues), tt.want)
			assert.False(t, HasErrors(issues), "rule findings are warnings")
		})
	}
}

func TestLintUnknownTypeNeedsRegistry(t *testing.T) {
	def := defWith(&form.Question{Slug: "q", Type: "starship"})

	assert.Empty(t, LintForm(def, nil), "nil registry skips type checks")

	issues := LintForm(def, options.Builtin())
	require.Len(t, issues, 1)
	assert.Equal(t, CodeUnknownType, issues[0].Code)
}

func TestLintNilDefinition(t *testing.T) {
	assert.Nil(t, LintForm(nil, nil))
}
