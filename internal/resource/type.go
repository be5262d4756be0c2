package resource

import (
	"fmt"
	"regexp"
)

// DefaultMaxAmount is the per-slot ceiling used for types that do not
// declare their own.
const DefaultMaxAmount uint64 = 64

var typeIDPattern = regexp.MustCompile(`^[a-z0-9_.-]+(:[a-z0-9_./-]+)?$`)

// Type is an interned resource kind. Compare types by pointer.
type Type struct {
	// ID is the registry key, e.g. "minecraft:iron_ingot" or "water".
	ID string

	// MaxAmount caps how many units of this type fit in one slot,
	// regardless of the slot's nominal capacity.
	MaxAmount uint64

	// Remainder is left behind in a slot when one unit of this type is
	// consumed, e.g. a filled bucket leaves an empty bucket. Nil for most
	// types.
	Remainder *Type
}

// ValidID reports whether id matches the type key grammar: a lowercase
// path, optionally prefixed by a namespace and a colon.
func ValidID(id string) bool {
	return typeIDPattern.MatchString(id)
}

func (t *Type) String() string {
	if t == nil {
		return "<empty>"
	}
	return t.ID
}

// Registry interns resource types by ID and remembers registration order.
type Registry struct {
	byID  map[string]*Type
	order []*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Type)}
}

// Register adds a type. A zero MaxAmount is replaced with DefaultMaxAmount.
// Registering a duplicate ID or an ID that does not match the key grammar
// returns an error.
func (r *Registry) Register(t *Type) error {
	if t == nil {
		return fmt.Errorf("register: nil type")
	}
	if !ValidID(t.ID) {
		return fmt.Errorf("register: invalid type id %q", t.ID)
	}
	if _, exists := r.byID[t.ID]; exists {
		return fmt.Errorf("register: duplicate type id %q", t.ID)
	}
	if t.MaxAmount == 0 {
		t.MaxAmount = DefaultMaxAmount
	}
	r.byID[t.ID] = t
	r.order = append(r.order, t)
	return nil
}

// MustRegister is Register for setup code; it panics on error and returns
// the registered type.
func (r *Registry) MustRegister(id string, maxAmount uint64) *Type {
	t := &Type{ID: id, MaxAmount: maxAmount}
	if err := r.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the type registered under id.
func (r *Registry) Lookup(id string) (*Type, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Types returns all registered types in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.order)
}
