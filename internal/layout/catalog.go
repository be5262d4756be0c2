package layout

import (
	"fmt"
	"log/slog"

	"cuelang.org/go/cue/token"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

// ResourceSpec declares one resource type.
type ResourceSpec struct {
	ID        string
	Max       uint64 // zero means resource.DefaultMaxAmount
	Remainder string
	Pos       token.Pos
}

// GroupTypeSpec declares a slot group descriptor.
type GroupTypeSpec struct {
	ID     string
	Name   string
	Colour uint32
	Policy string
	Pos    token.Pos
}

// FilterSpec restricts what a group's slots admit. Allow, when non-empty,
// lists the only admitted types; Deny removes types; Metadata requires the
// listed key/value pairs.
type FilterSpec struct {
	Allow    []string
	Deny     []string
	Metadata resource.Metadata
	Pos      token.Pos
}

// GroupSpec declares a run of identical slots.
type GroupSpec struct {
	Type     string
	Slots    int
	Capacity uint64
	Fixed    bool   // ignore per-type max amounts
	Policy   string // overrides the group type's policy when set
	Filter   *FilterSpec
	Strict   *FilterSpec
	Pos      token.Pos
}

// LayoutSpec is a named storage shape.
type LayoutSpec struct {
	Name   string
	Groups []GroupSpec
	Pos    token.Pos
}

// Catalog is a compiled set of resources, group types and layouts.
// Every storage built from one catalog shares its registry.
type Catalog struct {
	Resources  []ResourceSpec
	GroupTypes []GroupTypeSpec
	Layouts    []LayoutSpec

	registry   *resource.Registry
	groupTypes map[string]storage.GroupType
}

// Registry returns the catalog's resource registry.
func (c *Catalog) Registry() *resource.Registry { return c.registry }

// GroupType returns the linked descriptor for id.
func (c *Catalog) GroupType(id string) (storage.GroupType, bool) {
	gt, ok := c.groupTypes[id]
	return gt, ok
}

// Layout returns the layout named name.
func (c *Catalog) Layout(name string) (LayoutSpec, bool) {
	for _, l := range c.Layouts {
		if l.Name == name {
			return l, true
		}
	}
	return LayoutSpec{}, false
}

// LayoutNames returns layout names in declaration order.
func (c *Catalog) LayoutNames() []string {
	names := make([]string, len(c.Layouts))
	for i, l := range c.Layouts {
		names[i] = l.Name
	}
	return names
}

// link interns resources and resolves group type policies. Validate must
// have passed.
func (c *Catalog) link() error {
	reg := resource.NewRegistry()

	types := make(map[string]*resource.Type, len(c.Resources))
	for _, r := range c.Resources {
		types[r.ID] = &resource.Type{ID: r.ID, MaxAmount: r.Max}
	}
	for _, r := range c.Resources {
		if r.Remainder != "" {
			types[r.ID].Remainder = types[r.Remainder]
		}
		if err := reg.Register(types[r.ID]); err != nil {
			return fmt.Errorf("link resource %q: %w", r.ID, err)
		}
	}

	groupTypes := make(map[string]storage.GroupType, len(c.GroupTypes))
	for _, g := range c.GroupTypes {
		policy, err := storage.PolicyByName(g.Policy)
		if err != nil {
			return fmt.Errorf("link group type %q: %w", g.ID, err)
		}
		groupTypes[g.ID] = storage.GroupType{
			ID:     g.ID,
			Name:   g.Name,
			Colour: g.Colour,
			Policy: policy,
		}
	}

	c.registry = reg
	c.groupTypes = groupTypes
	return nil
}

// Build instantiates the named layout.
func (c *Catalog) Build(name string, opts ...storage.BuilderOption) (*storage.Storage, error) {
	l, ok := c.Layout(name)
	if !ok {
		return nil, fmt.Errorf("build layout: unknown layout %q", name)
	}

	b := storage.NewBuilder(c.registry, opts...)
	for _, g := range l.Groups {
		slotOpts, err := c.slotOptions(g)
		if err != nil {
			return nil, fmt.Errorf("build layout %q: %w", name, err)
		}
		b.AddSlots(c.groupTypes[g.Type], g.Slots, g.Capacity, slotOpts...)
	}

	s, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build layout %q: %w", name, err)
	}

	slog.Debug("storage built",
		"layout", name,
		"storage", s.ID(),
		"groups", len(s.Groups()),
		"slots", s.Size())
	return s, nil
}

func (c *Catalog) slotOptions(g GroupSpec) ([]storage.SlotOption, error) {
	var opts []storage.SlotOption

	if g.Filter != nil {
		opts = append(opts, storage.WithFilter(c.compileFilter(g.Filter)))
	}
	if g.Strict != nil {
		opts = append(opts, storage.WithStrictFilter(c.compileFilter(g.Strict)))
	}
	if g.Policy != "" {
		policy, err := storage.PolicyByName(g.Policy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithPolicy(policy))
	}
	if g.Fixed {
		opts = append(opts, storage.WithCapacityFunc(storage.Fixed))
	}
	return opts, nil
}

func (c *Catalog) compileFilter(f *FilterSpec) resource.Filter {
	var parts []resource.Filter
	if len(f.Allow) > 0 {
		parts = append(parts, resource.AnyOf(c.lookupAll(f.Allow)...))
	}
	if len(f.Deny) > 0 {
		parts = append(parts, resource.Not(resource.AnyOf(c.lookupAll(f.Deny)...)))
	}
	if len(f.Metadata) > 0 {
		parts = append(parts, resource.HasMetadata(f.Metadata))
	}
	return resource.And(parts...)
}

func (c *Catalog) lookupAll(ids []string) []*resource.Type {
	types := make([]*resource.Type, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.registry.Lookup(id); ok {
			types = append(types, t)
		}
	}
	return types
}
