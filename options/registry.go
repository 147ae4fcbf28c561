package options

import "github.com/formflow/formflow-go/form"

// QuestionType describes one registered input type: how it renders and the
// default option list it contributes when neither conditional logic nor the
// question itself supplies options.
type QuestionType struct {
	Slug           string                `json:"slug"`
	Name           string                `json:"name"`
	InputKind      string                `json:"input_kind"`
	DefaultOptions form.LocalizedOptions `json:"default_options,omitempty"`
}

// Registry maps type slugs to their definitions. The zero value is usable;
// lookups on an unknown slug report !ok.
type Registry struct {
	types map[string]*QuestionType
}

// NewRegistry builds a registry from the given types.
func NewRegistry(types ...*QuestionType) *Registry {
	r := &Registry{types: make(map[string]*QuestionType, len(types))}
	for _, qt := range types {
		r.types[qt.Slug] = qt
	}
	return r
}

// Register adds or replaces one type.
func (r *Registry) Register(qt *QuestionType) {
	if r.types == nil {
		r.types = make(map[string]*QuestionType)
	}
	r.types[qt.Slug] = qt
}

// Lookup returns the type for slug.
func (r *Registry) Lookup(slug string) (*QuestionType, bool) {
	qt, ok := r.types[slug]
	return qt, ok
}

// All returns every registered type keyed by slug.
func (r *Registry) All() map[string]*QuestionType {
	out := make(map[string]*QuestionType, len(r.types))
	for slug, qt := range r.types {
		out[slug] = qt
	}
	return out
}

// Builtin returns a registry seeded with the standard input types.
func Builtin() *Registry {
	return NewRegistry(
		&QuestionType{Slug: "text", Name: "Text", InputKind: "text"},
		&QuestionType{Slug: "email", Name: "Email", InputKind: "email"},
		&QuestionType{Slug: "tel", Name: "Telephone", InputKind: "tel"},
		&QuestionType{Slug: "number", Name: "Number", InputKind: "number"},
		&QuestionType{Slug: "textarea", Name: "Long text", InputKind: "textarea"},
		&QuestionType{Slug: "select", Name: "Dropdown", InputKind: "select"},
		&QuestionType{Slug: "radio", Name: "Radio", InputKind: "radio"},
		&QuestionType{Slug: "checkbox", Name: "Checkboxes", InputKind: "checkbox"},
		&QuestionType{Slug: "yes-no", Name: "Yes / No", InputKind: "radio"},
	)
}
