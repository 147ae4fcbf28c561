package form

// Operator names accepted in a Condition.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
)

// Action types accepted in a Rule.
const (
	ActionShow       = "show"
	ActionHide       = "hide"
	ActionRequire    = "require"
	ActionUnrequire  = "unrequire"
	ActionSetOptions = "set_options"
	ActionClearValue = "clear_value"
)

// Logical operators for combining a rule's conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Definition is an immutable form structure: ordered pages of questions.
// Question slugs are unique across the whole form so conditions can
// reference answers on any page.
type Definition struct {
	Slug  string  `json:"slug"`
	Title string  `json:"title,omitempty"`
	Pages []*Page `json:"pages"`
}

// Page holds an ordered sequence of questions and, orthogonally, question
// groups with their own questions. Order defines display and navigation.
type Page struct {
	Slug           string           `json:"slug"`
	Title          string           `json:"title,omitempty"`
	Questions      []*Question      `json:"questions,omitempty"`
	QuestionGroups []*QuestionGroup `json:"question_groups,omitempty"`
}

// QuestionGroup is a titled sub-sequence of questions within a page.
type QuestionGroup struct {
	Slug      string      `json:"slug"`
	Title     string      `json:"title,omitempty"`
	Questions []*Question `json:"questions,omitempty"`
}

// Question is a single input field. Slug is the stable identifier used by
// conditions; Required is the author-declared baseline before conditional
// logic is applied.
type Question struct {
	Slug       string            `json:"slug"`
	Label      string            `json:"label"`
	Type       string            `json:"type"`
	Required   bool              `json:"required,omitempty"`
	Options    LocalizedOptions  `json:"options,omitempty"`
	Validation *Validation       `json:"validation,omitempty"`
	Logic      *ConditionalLogic `json:"conditional_logic,omitempty"`
}

// Validation holds per-question constraints applied to answered values.
type Validation struct {
	Email     bool `json:"email,omitempty"`
	MinLength int  `json:"min_length,omitempty"`
	MaxLength int  `json:"max_length,omitempty"`
}

// ConditionalLogic is an ordered rule set plus the action taken when no
// rule matches.
type ConditionalLogic struct {
	Rules         []*Rule `json:"rules"`
	DefaultAction string  `json:"default_action,omitempty"`
}

// Rule groups conditions under a logical operator and carries the ordered
// actions applied when the rule matches. Declaration order is significant:
// the first matching rule wins and later rules are never consulted.
type Rule struct {
	Conditions      []*Condition `json:"conditions"`
	LogicalOperator string       `json:"logical_operator,omitempty"`
	Actions         []*Action    `json:"actions"`
}

// Condition tests one answer. QuestionSlug may reference a question on a
// different page than the one carrying the rule.
type Condition struct {
	QuestionSlug string `json:"question_slug"`
	Operator     string `json:"operator"`
	Value        any    `json:"value,omitempty"`
}

// Action mutates one field of the effective state. Options is only set for
// set_options actions.
type Action struct {
	Type    string           `json:"type"`
	Options LocalizedOptions `json:"options,omitempty"`
}

// Option is one selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AnswerMap holds user-entered values keyed by question slug. Values are
// strings, float64 numbers, or []any value lists as decoded from JSON.
type AnswerMap map[string]any

// Clone returns a shallow copy safe to hand to a persistence call while the
// original keeps mutating.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// FindQuestion scans all pages' direct questions and all group questions for
// the given slug, returning the first match. Conditions may reference slugs
// on pages other than the active one, so the scan always covers the whole
// form.
func (d *Definition) FindQuestion(slug string) *Question {
	if d == nil {
		return nil
	}
	for _, page := range d.Pages {
		for _, q := range page.Questions {
			if q.Slug == slug {
				return q
			}
		}
		for _, group := range page.QuestionGroups {
			for _, q := range group.Questions {
				if q.Slug == slug {
					return q
				}
			}
		}
	}
	return nil
}

// AllQuestions returns every question in declaration order, direct questions
// first per page, then group questions.
func (d *Definition) AllQuestions() []*Question {
	var out []*Question
	if d == nil {
		return out
	}
	for _, page := range d.Pages {
		out = append(out, page.AllQuestions()...)
	}
	return out
}

// AllQuestions flattens a page's direct questions and group questions into
// one ordered sequence.
func (p *Page) AllQuestions() []*Question {
	var out []*Question
	out = append(out, p.Questions...)
	for _, group := range p.QuestionGroups {
		out = append(out, group.Questions...)
	}
	return out
}
