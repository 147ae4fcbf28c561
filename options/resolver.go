package options

import (
	"log"

	"github.com/formflow/formflow-go/eval"
	"github.com/formflow/formflow-go/form"
)

// yesNo is the built-in fallback for the yes-no type when nothing else
// supplies options.
var yesNo = []form.Option{
	{Label: "Yes", Value: "yes"},
	{Label: "No", Value: "no"},
}

// Resolver picks the selectable option list for a question. Priority order,
// first non-empty wins: options set by a matched conditional rule, the
// question's own configured options, the type's default options, then the
// yes-no builtin. Language fallback inside each source is requested
// language, then "en", then the first available key.
type Resolver struct {
	Registry *Registry
	Logic    *eval.Resolver
	Warn     func(format string, args ...any)
}

// NewResolver wires an option resolver for one language.
func NewResolver(reg *Registry, lang string) *Resolver {
	return &Resolver{
		Registry: reg,
		Logic:    &eval.Resolver{Lang: lang},
		Warn:     log.Printf,
	}
}

// Resolve returns the effective option list for q given the current answers.
// Never returns nil; a question with no option source yields an empty list.
func (r *Resolver) Resolve(q *form.Question, answers form.AnswerMap) []form.Option {
	if state := r.Logic.Resolve(q, answers); len(state.Options) > 0 {
		return state.Options
	}

	if opts := q.Options.ForLanguage(r.Logic.Lang); len(opts) > 0 {
		return opts
	}

	qt, ok := r.Registry.Lookup(q.Type)
	if !ok {
		if r.Warn != nil {
			r.Warn("question type %q not registered, no options for %q", q.Type, q.Slug)
		}
		return []form.Option{}
	}
	if opts := qt.DefaultOptions.ForLanguage(r.Logic.Lang); len(opts) > 0 {
		return opts
	}

	if q.Type == "yes-no" {
		return yesNo
	}
	return []form.Option{}
}
