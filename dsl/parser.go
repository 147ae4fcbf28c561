// Package dsl parses the compact textual rule syntax used when authoring
// conditional logic inline in form definition files, e.g.
//
//	show, require when has-pet == "yes" and pet-count is_not_empty
//
// A parsed rule compiles to the same declarative structures the JSON form
// carries, so everything downstream of the loader sees one representation.
package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/formflow/formflow-go/form"
)

var (
	// ruleLexer defines the tokens of the rule syntax. Slugs may contain
	// hyphens, so Ident is wider than a Go identifier.
	ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Float", Pattern: `[-+]?\d*\.\d+`},
		{Name: "Int", Pattern: `[-+]?\d+`},
		{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
		{Name: "Operator", Pattern: `==|!=`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
		{Name: "Punct", Pattern: `[,()]`},
	})

	ruleParser = participle.MustBuild[ruleExpr](
		participle.Lexer(ruleLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// ruleExpr is the participle grammar for one rule line: a comma-separated
// action list, optionally followed by a when clause.
type ruleExpr struct {
	Pos     lexer.Position
	Actions []string    `parser:"@Ident (',' @Ident)*"`
	When    *whenClause `parser:"('when' @@)?"`
}

type whenClause struct {
	First *condExpr   `parser:"@@"`
	Rest  []*condLink `parser:"@@*"`
}

type condLink struct {
	Connector string    `parser:"@('and' | 'or')"`
	Cond      *condExpr `parser:"@@"`
}

type condExpr struct {
	Pos   lexer.Position
	Slug  string   `parser:"@Ident"`
	Op    string   `parser:"@(Operator | 'contains' | 'not_contains' | 'is_empty' | 'is_not_empty')"`
	Value *literal `parser:"@@?"`
}

type literal struct {
	Str   *string  `parser:"@String"`
	Float *float64 `parser:"| @Float"`
	Int   *int64   `parser:"| @Int"`
}

// ParseRule compiles one rule line into the declarative form. Mixing "and"
// and "or" in one clause is rejected; the declarative rule carries a single
// logical operator for all of its conditions.
func ParseRule(input string) (*form.Rule, error) {
	expr, err := ruleParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule %q: %w", input, err)
	}
	return compileRule(expr)
}

// ParseLogic compiles a sequence of rule lines, preserving declaration order
// so first-match-wins semantics carry through untouched.
func ParseLogic(lines []string, defaultAction string) (*form.ConditionalLogic, error) {
	logic := &form.ConditionalLogic{DefaultAction: defaultAction}
	for _, line := range lines {
		rule, err := ParseRule(line)
		if err != nil {
			return nil, err
		}
		logic.Rules = append(logic.Rules, rule)
	}
	return logic, nil
}

func compileRule(expr *ruleExpr) (*form.Rule, error) {
	rule := &form.Rule{}

	for _, name := range expr.Actions {
		switch name {
		case form.ActionShow, form.ActionHide, form.ActionRequire,
			form.ActionUnrequire, form.ActionClearValue:
			rule.Actions = append(rule.Actions, &form.Action{Type: name})
		default:
			return nil, fmt.Errorf("unknown action %q at %s", name, expr.Pos)
		}
	}

	if expr.When == nil {
		return rule, nil
	}

	cond, err := compileCondition(expr.When.First)
	if err != nil {
		return nil, err
	}
	rule.Conditions = append(rule.Conditions, cond)

	connector := ""
	for _, link := range expr.When.Rest {
		if connector == "" {
			connector = link.Connector
		} else if connector != link.Connector {
			return nil, fmt.Errorf("cannot mix 'and' and 'or' in one rule")
		}
		cond, err := compileCondition(link.Cond)
		if err != nil {
			return nil, err
		}
		rule.Conditions = append(rule.Conditions, cond)
	}
	if connector == "or" {
		rule.LogicalOperator = form.LogicOr
	} else {
		rule.LogicalOperator = form.LogicAnd
	}
	return rule, nil
}

func compileCondition(expr *condExpr) (*form.Condition, error) {
	cond := &form.Condition{QuestionSlug: expr.Slug, Operator: expr.Op}

	switch expr.Op {
	case form.OpIsEmpty, form.OpIsNotEmpty:
		if expr.Value != nil {
			return nil, fmt.Errorf("%s takes no value at %s", expr.Op, expr.Pos)
		}
		return cond, nil
	}

	if expr.Value == nil {
		return nil, fmt.Errorf("operator %s requires a value at %s", expr.Op, expr.Pos)
	}
	switch {
	case expr.Value.Str != nil:
		cond.Value = unquote(*expr.Value.Str)
	case expr.Value.Float != nil:
		cond.Value = *expr.Value.Float
	case expr.Value.Int != nil:
		// Answers decode from JSON as float64, so literals match that.
		cond.Value = float64(*expr.Value.Int)
	}

	// The wire operators are the word forms, but == / != read better in
	// the compact syntax; map them here.
	switch cond.Operator {
	case "==":
		cond.Operator = form.OpEquals
	case "!=":
		cond.Operator = form.OpNotEquals
	}
	return cond, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// FormatCondition renders a declarative condition back into the compact
// syntax, used by the CLI's show command.
func FormatCondition(cond *form.Condition) string {
	op := cond.Operator
	switch op {
	case form.OpEquals:
		op = "=="
	case form.OpNotEquals:
		op = "!="
	}
	switch op {
	case form.OpIsEmpty, form.OpIsNotEmpty:
		return fmt.Sprintf("%s %s", cond.QuestionSlug, op)
	}
	switch v := cond.Value.(type) {
	case string:
		return fmt.Sprintf("%s %s %q", cond.QuestionSlug, op, v)
	case float64:
		return fmt.Sprintf("%s %s %s", cond.QuestionSlug, op, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return strings.TrimSpace(fmt.Sprintf("%s %s %v", cond.QuestionSlug, op, v))
	}
}
