package eval

import "github.com/formflow/formflow-go/form"

// EffectiveState is the resolved, answer-dependent view of one question. It
// is recomputed on demand and never cached across an answer mutation.
// Options is nil unless a matched set_options action supplied a list.
// ClearOnHide signals that the applied rule carried clear_value; the caller
// owning the answer map is responsible for removing the stored answer when
// the question transitions to hidden.
type EffectiveState struct {
	Visible     bool
	Required    bool
	Options     []form.Option
	ClearOnHide bool
}

// Resolver derives effective question state from conditional logic. Lang
// selects the option list language for set_options payloads.
type Resolver struct {
	Lang string
}

// Resolve computes the effective state for one question against the current
// answers. Rules are scanned in declaration order and the first match is
// applied exclusively; when none match, the logic's default action decides.
// That includes a declared-but-empty rule list: zero rules means zero matches,
// so the default action still applies. Only absent logic yields the static
// view unconditionally.
func (r *Resolver) Resolve(q *form.Question, answers form.AnswerMap) EffectiveState {
	base := EffectiveState{Visible: true, Required: q.Required}
	if q.Logic == nil || q.Logic.Rules == nil {
		return base
	}

	for _, rule := range q.Logic.Rules {
		if !EvaluateRule(rule, answers) {
			continue
		}
		state := base
		for _, action := range rule.Actions {
			switch action.Type {
			case form.ActionShow:
				state.Visible = true
			case form.ActionHide:
				state.Visible = false
			case form.ActionRequire:
				state.Required = true
			case form.ActionUnrequire:
				state.Required = false
			case form.ActionSetOptions:
				state.Options = action.Options.ForLanguage(r.Lang)
			case form.ActionClearValue:
				state.ClearOnHide = true
			default:
				defaultWarn("unknown action type: %s", action.Type)
			}
		}
		return state
	}

	if q.Logic.DefaultAction == form.ActionHide {
		return EffectiveState{Visible: false, Required: false}
	}
	return base
}
