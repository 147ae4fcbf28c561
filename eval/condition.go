package eval

import (
	"log"
	"strings"

	"github.com/formflow/formflow-go/form"
)

// WarnFunc receives non-fatal evaluation warnings (unknown operators and the
// like). The default logs through the standard logger; tests inject their
// own to assert on degraded paths.
type WarnFunc func(format string, args ...any)

var defaultWarn WarnFunc = log.Printf

// SetWarnFunc replaces the package warning sink. Passing nil restores the
// standard logger.
func SetWarnFunc(fn WarnFunc) {
	if fn == nil {
		fn = log.Printf
	}
	defaultWarn = fn
}

// EvaluateCondition tests one condition against the current answers. An
// unknown operator evaluates to false and is reported as a warning rather
// than an error, so one bad author rule degrades instead of halting the
// session.
func EvaluateCondition(cond *form.Condition, answers form.AnswerMap) bool {
	if cond == nil {
		return false
	}
	value, ok := answers[cond.QuestionSlug]
	if !ok {
		value = nil
	}

	switch cond.Operator {
	case form.OpEquals:
		return equal(value, cond.Value)
	case form.OpNotEquals:
		return !equal(value, cond.Value)
	case form.OpContains:
		if form.IsEmptyValue(value) {
			return false
		}
		return strings.Contains(form.ValueToString(value), form.ValueToString(cond.Value))
	case form.OpNotContains:
		if form.IsEmptyValue(value) {
			return true
		}
		return !strings.Contains(form.ValueToString(value), form.ValueToString(cond.Value))
	case form.OpIsEmpty:
		return form.IsEmptyValue(value)
	case form.OpIsNotEmpty:
		return !form.IsEmptyValue(value)
	default:
		defaultWarn("unknown condition operator: %s", cond.Operator)
		return false
	}
}

// EvaluateRule reports whether a rule's conditions hold: OR needs any
// condition true, AND (or an unspecified operator) needs all of them. A rule
// with zero conditions is vacuously true.
func EvaluateRule(rule *form.Rule, answers form.AnswerMap) bool {
	if rule == nil || len(rule.Conditions) == 0 {
		return true
	}

	if strings.EqualFold(rule.LogicalOperator, form.LogicOr) {
		for _, cond := range rule.Conditions {
			if EvaluateCondition(cond, answers) {
				return true
			}
		}
		return false
	}

	for _, cond := range rule.Conditions {
		if !EvaluateCondition(cond, answers) {
			return false
		}
	}
	return true
}

// equal is strict equality on the raw stored answer, with numeric widening
// for int literals written in Go tests against float64 JSON values.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch aVal := a.(type) {
	case string:
		bStr, ok := b.(string)
		return ok && aVal == bStr
	case bool:
		bBool, ok := b.(bool)
		return ok && aVal == bBool
	case float64:
		switch bVal := b.(type) {
		case float64:
			return aVal == bVal
		case int:
			return aVal == float64(bVal)
		}
	case int:
		switch bVal := b.(type) {
		case float64:
			return float64(aVal) == bVal
		case int:
			return aVal == bVal
		}
	}
	return false
}
