package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stockpile/internal/resource"
)

// Builder assembles a Storage from group and slot declarations.
//
// Errors are collected and reported together by Build, so declarations can
// be chained:
//
//	s, err := storage.NewBuilder(reg).
//	    AddSlots(inputType, 2, 64).
//	    AddSlots(outputType, 1, 64).
//	    Build()
type Builder struct {
	registry *resource.Registry
	ids      IDGenerator
	id       uuid.UUID
	groups   []*Group
	seen     map[string]bool
	errs     []error
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator sets the generator used when no explicit ID is given.
// Defaults to UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) BuilderOption {
	return func(b *Builder) {
		b.ids = gen
	}
}

// WithID fixes the storage ID.
func WithID(id uuid.UUID) BuilderOption {
	return func(b *Builder) {
		b.id = id
	}
}

// NewBuilder returns a builder resolving types through registry.
func NewBuilder(registry *resource.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		ids:      UUIDv7Generator{},
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddGroup declares a group made of the given slots.
func (b *Builder) AddGroup(typ GroupType, slots ...*Slot) *Builder {
	if typ.ID == "" {
		b.errs = append(b.errs, fmt.Errorf("group %d: empty type id", len(b.groups)))
		return b
	}
	if b.seen[typ.ID] {
		b.errs = append(b.errs, fmt.Errorf("group %q: declared twice", typ.ID))
		return b
	}
	if len(slots) == 0 {
		b.errs = append(b.errs, fmt.Errorf("group %q: no slots", typ.ID))
		return b
	}
	for i, s := range slots {
		if s == nil {
			b.errs = append(b.errs, fmt.Errorf("group %q: slot %d is nil", typ.ID, i))
			return b
		}
		if s.group != nil {
			b.errs = append(b.errs, fmt.Errorf("group %q: slot %d already belongs to group %q", typ.ID, i, s.group.typ.ID))
			return b
		}
		if s.capacity == 0 {
			b.errs = append(b.errs, fmt.Errorf("group %q: slot %d has zero capacity", typ.ID, i))
			return b
		}
	}
	b.seen[typ.ID] = true
	b.groups = append(b.groups, NewGroup(typ, slots...))
	return b
}

// AddSlots declares a group of n identical slots.
func (b *Builder) AddSlots(typ GroupType, n int, capacity uint64, opts ...SlotOption) *Builder {
	slots := make([]*Slot, n)
	for i := range slots {
		slots[i] = NewSlot(capacity, opts...)
	}
	return b.AddGroup(typ, slots...)
}

// Build returns the storage, or every declaration error joined.
func (b *Builder) Build() (*Storage, error) {
	if b.registry == nil {
		b.errs = append(b.errs, errors.New("no resource registry"))
	}
	if len(b.groups) == 0 && len(b.errs) == 0 {
		b.errs = append(b.errs, errors.New("storage has no groups"))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build storage: %w", errors.Join(b.errs...))
	}

	id := b.id
	if id == uuid.Nil {
		id = b.ids.NewID()
	}
	return New(id, b.registry, b.groups...), nil
}
