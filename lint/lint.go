// Package lint runs static checks over a loaded form definition: problems
// that are not fatal at runtime (evaluation degrades to safe defaults) but
// that an author wants surfaced before publishing.
package lint

import (
	"fmt"

	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/options"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"

	CodeDuplicateSlug    = "duplicate-slug"
	CodeUnknownReference = "unknown-reference"
	CodeUnknownOperator  = "unknown-operator"
	CodeUnknownAction    = "unknown-action"
	CodeUnknownType      = "unknown-type"
	CodeEmptyRule        = "empty-rule"
	CodeSelfReference    = "self-reference"
)

// Issue is one linter finding, located by the question carrying it.
type Issue struct {
	Form     string `json:"form"`
	Question string `json:"question,omitempty"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

var knownOperators = map[string]bool{
	form.OpEquals:      true,
	form.OpNotEquals:   true,
	form.OpContains:    true,
	form.OpNotContains: true,
	form.OpIsEmpty:     true,
	form.OpIsNotEmpty:  true,
}

var knownActions = map[string]bool{
	form.ActionShow:       true,
	form.ActionHide:       true,
	form.ActionRequire:    true,
	form.ActionUnrequire:  true,
	form.ActionSetOptions: true,
	form.ActionClearValue: true,
}

// LintForm checks one definition against an optional type registry. A nil
// registry skips the type checks.
func LintForm(def *form.Definition, registry *options.Registry) []Issue {
	if def == nil {
		return nil
	}
	issues := make([]Issue, 0)

	seen := make(map[string]bool)
	for _, q := range def.AllQuestions() {
		if seen[q.Slug] {
			issues = append(issues, Issue{
				Form:     def.Slug,
				Question: q.Slug,
				Severity: SeverityError,
				Code:     CodeDuplicateSlug,
				Message:  fmt.Sprintf("question slug %q is declared more than once", q.Slug),
			})
		}
		seen[q.Slug] = true
	}

	for _, q := range def.AllQuestions() {
		issues = append(issues, lintQuestion(def, q, registry)...)
	}
	return issues
}

func lintQuestion(def *form.Definition, q *form.Question, registry *options.Registry) []Issue {
	var issues []Issue

	if registry != nil {
		if _, ok := registry.Lookup(q.Type); !ok {
			issues = append(issues, Issue{
				Form:     def.Slug,
				Question: q.Slug,
				Severity: SeverityWarning,
				Code:     CodeUnknownType,
				Message:  fmt.Sprintf("question type %q is not registered", q.Type),
			})
		}
	}

	if q.Logic == nil {
		return issues
	}

	for i, rule := range q.Logic.Rules {
		if len(rule.Actions) == 0 {
			issues = append(issues, Issue{
				Form:     def.Slug,
				Question: q.Slug,
				Severity: SeverityWarning,
				Code:     CodeEmptyRule,
				Message:  fmt.Sprintf("rule %d has no actions", i+1),
			})
		}
		for _, action := range rule.Actions {
			if !knownActions[action.Type] {
				issues = append(issues, Issue{
					Form:     def.Slug,
					Question: q.Slug,
					Severity: SeverityWarning,
					Code:     CodeUnknownAction,
					Message:  fmt.Sprintf("rule %d uses unknown action %q", i+1, action.Type),
				})
			}
		}
		for _, cond := range rule.Conditions {
			if !knownOperators[cond.Operator] {
				issues = append(issues, Issue{
					Form:     def.Slug,
					Question: q.Slug,
					Severity: SeverityWarning,
					Code:     CodeUnknownOperator,
					Message:  fmt.Sprintf("rule %d uses unknown operator %q", i+1, cond.Operator),
				})
			}
			if def.FindQuestion(cond.QuestionSlug) == nil {
				issues = append(issues, Issue{
					Form:     def.Slug,
					Question: q.Slug,
					Severity: SeverityWarning,
					Code:     CodeUnknownReference,
					Message:  fmt.Sprintf("rule %d references unknown question %q", i+1, cond.QuestionSlug),
				})
			}
			if cond.QuestionSlug == q.Slug {
				issues = append(issues, Issue{
					Form:     def.Slug,
					Question: q.Slug,
					Severity: SeverityWarning,
					Code:     CodeSelfReference,
					Message:  fmt.Sprintf("rule %d conditions on the question's own answer", i+1),
				})
			}
		}
	}
	return issues
}

// HasErrors reports whether any issue is error severity.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
