package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/formflow-go/form"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, rule *form.Rule)
	}{
		{
			name:  "single action with equals",
			input: `show when has-pet == "yes"`,
			check: func(t *testing.T, rule *form.Rule) {
				require.Len(t, rule.Actions, 1)
				assert.Equal(t, form.ActionShow, rule.Actions[0].Type)
				require.Len(t, rule.Conditions, 1)
				cond := rule.Conditions[0]
				assert.Equal(t, "has-pet", cond.QuestionSlug)
				assert.Equal(t, form.OpEquals, cond.Operator)
				assert.Equal(t, "yes", cond.Value)
			},
		},
		{
			name:  "action list preserves order",
			input: `hide, clear_value when age != 18`,
			check: func(t *testing.T, rule *form.Rule) {
				require.Len(t, rule.Actions, 2)
				assert.Equal(t, form.ActionHide, rule.Actions[0].Type)
				assert.Equal(t, form.ActionClearValue, rule.Actions[1].Type)
				assert.Equal(t, form.OpNotEquals, rule.Conditions[0].Operator)
			},
		},
		{
			name:  "int literal widens to float64",
			input: `show when pet-count == 3`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Equal(t, float64(3), rule.Conditions[0].Value)
			},
		},
		{
			name:  "float literal",
			input: `show when score == 3.5`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Equal(t, 3.5, rule.Conditions[0].Value)
			},
		},
		{
			name:  "single-quoted string",
			input: `show when color contains 'red'`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Equal(t, form.OpContains, rule.Conditions[0].Operator)
				assert.Equal(t, "red", rule.Conditions[0].Value)
			},
		},
		{
			name:  "and joins with LogicAnd",
			input: `show, require when has-pet == "yes" and pet-count is_not_empty`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Equal(t, form.LogicAnd, rule.LogicalOperator)
				require.Len(t, rule.Conditions, 2)
				assert.Equal(t, form.OpIsNotEmpty, rule.Conditions[1].Operator)
				assert.Nil(t, rule.Conditions[1].Value)
			},
		},
		{
			name:  "or joins with LogicOr",
			input: `hide when status == "done" or status is_empty`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Equal(t, form.LogicOr, rule.LogicalOperator)
			},
		},
		{
			name:  "no when clause is unconditional",
			input: `require`,
			check: func(t *testing.T, rule *form.Rule) {
				assert.Empty(t, rule.Conditions)
				assert.Equal(t, form.ActionRequire, rule.Actions[0].Type)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRule(tt.input)
			require.NoError(t, err)
			tt.check(t, rule)
		})
	}
}

func TestParseRuleErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown action", `explode when a == 1`, "unknown action"},
		{"mixed connectors", `show when a == 1 and b == 2 or c == 3`, "cannot mix"},
		{"value on is_empty", `show when a is_empty "x"`, "takes no value"},
		{"missing value", `show when a ==`, "requires a value"},
		{"garbage", `when ==`, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRule(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLogicPreservesRuleOrder(t *testing.T) {
	logic, err := ParseLogic([]string{
		`show when has-pet == "yes"`,
		`hide, clear_value when has-pet == "no"`,
	}, "hide")
	require.NoError(t, err)
	assert.Equal(t, "hide", logic.DefaultAction)
	require.Len(t, logic.Rules, 2)
	assert.Equal(t, form.ActionShow, logic.Rules[0].Actions[0].Type)
	assert.Equal(t, form.ActionHide, logic.Rules[1].Actions[0].Type)
}

func TestFormatConditionRoundTrip(t *testing.T) {
	inputs := []string{
		`has-pet == "yes"`,
		`age != 18`,
		`color contains "red"`,
		`pet-count is_not_empty`,
		`notes is_empty`,
	}
	for _, input := range inputs {
		rule, err := ParseRule("show when " + input)
		require.NoError(t, err)
		assert.Equal(t, input, FormatCondition(rule.Conditions[0]))
	}
}
