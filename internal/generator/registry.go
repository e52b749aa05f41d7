package generator

// Registry holds generators in specificity order: framework-specific
// generators come before any generic fallback.
type Registry struct {
	generators []Generator
}

// NewRegistry creates a registry that consults generators in the given order.
func NewRegistry(generators ...Generator) *Registry {
	return &Registry{generators: generators}
}

// DefaultRegistry returns the built-in Python generators.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewFastAPIGenerator(),
		NewFlaskGenerator(),
		NewPythonGenerator(),
	)
}

// Select returns the first generator that accepts in.
func (r *Registry) Select(in Input) (Generator, bool) {
	for _, g := range r.generators {
		if g.CanGenerate(in) {
			return g, true
		}
	}
	return nil, false
}

// Names lists the registered generators in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.generators))
	for _, g := range r.generators {
		out = append(out, g.Name())
	}
	return out
}
