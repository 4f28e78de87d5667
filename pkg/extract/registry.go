package extract

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Registry maps extractor names to extraction capabilities. It is
// populated once at process initialization and never mutated afterwards,
// so concurrent reads need no synchronization.
type Registry struct {
	extractors map[string]Extractor
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// NewDefaultRegistry returns a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(NewProfileExtractor())
	r.MustRegister(NewTasksExtractor())
	r.MustRegister(NewSpecialtiesExtractor())
	return r
}

// Register adds an extractor. Duplicate names are an error: registration
// happens at startup and a collision is a programming mistake, not a
// runtime condition.
func (r *Registry) Register(e Extractor) error {
	name := e.Descriptor().Name
	if name == "" {
		return fmt.Errorf("extractor has empty name")
	}
	if _, exists := r.extractors[name]; exists {
		return fmt.Errorf("extractor %q already registered", name)
	}
	r.extractors[name] = e
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register that panics, for static initialization tables.
func (r *Registry) MustRegister(e Extractor) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Resolve looks up an extractor by name.
func (r *Registry) Resolve(name string) (Extractor, bool) {
	e, ok := r.extractors[name]
	return e, ok
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.extractors[name].Descriptor())
	}
	return out
}

// ExpandNames resolves requested names against the registry. Entries
// containing glob metacharacters expand to the registered names they
// match; literal entries pass through untouched so unknown names still
// surface as skipped outcomes. Duplicates are dropped, keeping first
// position.
func (r *Registry) ExpandNames(requested []string) []string {
	var out []string
	seen := make(map[string]bool)

	appendName := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, entry := range requested {
		if !strings.ContainsAny(entry, "*?[") {
			appendName(entry)
			continue
		}
		matcher, err := glob.Compile(entry)
		if err != nil {
			appendName(entry)
			continue
		}
		for _, name := range r.order {
			if matcher.Match(name) {
				appendName(name)
			}
		}
	}
	return out
}
