package pypeline

import (
	"reflect"
	"slices"

	"github.com/sasha-s/go-deadlock"
)

// Registry owns the stage sequence and caches processed definitions.
// Stages declared against the same registry are ordered relative to each
// other even across unrelated pipelines.
type Registry struct {
	mu          deadlock.RWMutex
	seq         Sequence
	definitions map[string]registeredDefinition
	fields      map[reflect.Type][]fieldAttribute
}

type registeredDefinition struct {
	typ        reflect.Type
	definition any
}

// RegistryOption is a function that configures a Registry
type RegistryOption func(*Registry)

// WithSequence sets the sequence stage orders are drawn from
func WithSequence(seq Sequence) RegistryOption {
	return func(r *Registry) {
		r.seq = seq
	}
}

// NewRegistry creates a registry with its own Counter unless WithSequence
// is given.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		seq:         NewCounter(),
		definitions: make(map[string]registeredDefinition),
		fields:      make(map[reflect.Type][]fieldAttribute),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Sequence returns the sequence stage orders are drawn from.
func (r *Registry) Sequence() Sequence {
	return r.seq
}

// Names returns the names of all registered definitions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the definition registered under name, if it was built for
// pipeline type T.
func Lookup[T any](r *Registry, name string) (*Definition[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.definitions[name]
	if !ok {
		return nil, false
	}
	def, ok := reg.definition.(*Definition[T])
	return def, ok
}

// register stores def under name unless a definition already exists, in
// which case the existing one is returned with false.
func (r *Registry) register(name string, typ reflect.Type, def any) (registeredDefinition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.definitions[name]; ok {
		return existing, false
	}
	reg := registeredDefinition{typ: typ, definition: def}
	r.definitions[name] = reg
	return reg, true
}

// registered returns the type and definition stored under name.
func (r *Registry) registered(name string) (registeredDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.definitions[name]
	return reg, ok
}

// fieldsOf returns the attributes declared by the fields of t. Reflection
// runs once per type; callers receive their own copy.
func (r *Registry) fieldsOf(t reflect.Type) ([]fieldAttribute, error) {
	r.mu.RLock()
	cached, ok := r.fields[t]
	r.mu.RUnlock()
	if ok {
		return slices.Clone(cached), nil
	}

	fields, err := reflectAttributes(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.fields[t] = fields
	r.mu.Unlock()

	return slices.Clone(fields), nil
}
