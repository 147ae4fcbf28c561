package nav

import (
	"fmt"
	"net/mail"
	"unicode/utf8"

	"github.com/formflow/formflow-go/eval"
	"github.com/formflow/formflow-go/form"
)

// FieldError describes why one question blocks navigation.
type FieldError struct {
	QuestionSlug string `json:"question_slug"`
	Reason       string `json:"reason"`
}

// ValidationResult is the outcome of a page or form validation pass. It is
// a gating value, not an error: expected validation failures never surface
// as Go errors.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (v *ValidationResult) add(slug, reason string) {
	v.Valid = false
	v.Errors = append(v.Errors, FieldError{QuestionSlug: slug, Reason: reason})
}

// Navigator answers visibility and advance-gating questions for a form. It
// only reads the answer map; ownership stays with the session controller.
type Navigator struct {
	Form  *form.Definition
	Logic *eval.Resolver
}

// NewNavigator builds a navigator over one definition.
func NewNavigator(def *form.Definition, lang string) *Navigator {
	return &Navigator{Form: def, Logic: &eval.Resolver{Lang: lang}}
}

// VisibleQuestions returns the page's questions that resolve visible, direct
// questions first then group questions, in declaration order. Effective
// state is recomputed on every call so an answer edit is reflected
// immediately.
func (n *Navigator) VisibleQuestions(page *form.Page, answers form.AnswerMap) []*form.Question {
	var out []*form.Question
	for _, q := range page.AllQuestions() {
		if n.Logic.Resolve(q, answers).Visible {
			out = append(out, q)
		}
	}
	return out
}

// ValidatePage checks every visible question on the page. A question blocks
// when its resolved required flag is set and its answer is empty; hidden
// questions never block regardless of their static required flag. Answered
// values are additionally checked against the question's validation rules.
func (n *Navigator) ValidatePage(page *form.Page, answers form.AnswerMap) *ValidationResult {
	result := &ValidationResult{Valid: true}
	for _, q := range page.AllQuestions() {
		state := n.Logic.Resolve(q, answers)
		if !state.Visible {
			continue
		}
		value := answers[q.Slug]
		if form.IsEmptyValue(value) {
			if state.Required {
				result.add(q.Slug, "required")
			}
			continue
		}
		n.validateValue(q, value, result)
	}
	return result
}

// CanAdvance reports whether forward navigation off the page is allowed.
// Backward navigation is never gated.
func (n *Navigator) CanAdvance(page *form.Page, answers form.AnswerMap) bool {
	return n.ValidatePage(page, answers).Valid
}

// ValidateForm runs the page gate over every page, for the final submit
// check.
func (n *Navigator) ValidateForm(answers form.AnswerMap) *ValidationResult {
	result := &ValidationResult{Valid: true}
	for _, page := range n.Form.Pages {
		pageResult := n.ValidatePage(page, answers)
		if !pageResult.Valid {
			result.Valid = false
			result.Errors = append(result.Errors, pageResult.Errors...)
		}
	}
	return result
}

func (n *Navigator) validateValue(q *form.Question, value any, result *ValidationResult) {
	v := q.Validation
	if v == nil {
		return
	}
	text := form.ValueToString(value)
	if v.Email {
		if _, err := mail.ParseAddress(text); err != nil {
			result.add(q.Slug, "invalid email address")
		}
	}
	// Length bounds count characters, not bytes, so multibyte answers are
	// not over-counted.
	length := utf8.RuneCountInString(text)
	if v.MinLength > 0 && length < v.MinLength {
		result.add(q.Slug, fmt.Sprintf("shorter than %d characters", v.MinLength))
	}
	if v.MaxLength > 0 && length > v.MaxLength {
		result.add(q.Slug, fmt.Sprintf("longer than %d characters", v.MaxLength))
	}
}
