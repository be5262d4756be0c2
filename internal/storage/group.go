package storage

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// GroupType describes a slot group category. Descriptors are immutable and
// supplied by the host; the engine uses only Policy.
type GroupType struct {
	ID     string
	Name   string
	Colour uint32
	Policy IOPolicy
}

// Group is a fixed, ordered set of slots sharing a GroupType.
//
// Aggregate insert prefers slots already holding the same resource before
// spilling into empty slots; extraction takes from slots in order.
type Group struct {
	typ     GroupType
	slots   slotList
	storage *Storage
	index   int
	counter ChangeCounter
}

// NewGroup takes ownership of slots. Slots without an explicit policy
// inherit typ.Policy. A slot that already belongs to a group panics with
// ErrCodeSlotOwned.
func NewGroup(typ GroupType, slots ...*Slot) *Group {
	g := &Group{typ: typ, slots: slotList(slots), index: -1}
	for i, s := range slots {
		if s.group != nil {
			panic(contractViolation(ErrCodeSlotOwned, s.index,
				"slot %d of group %q already belongs to group %q", i, typ.ID, s.group.typ.ID))
		}
		s.group = g
		if !s.policySet {
			s.policy = typ.Policy
		}
	}
	return g
}

func (g *Group) touched(tx *txn.Transaction) {
	g.counter.Bump(tx)
	if g.storage != nil {
		g.storage.touched(tx)
	}
}

// Type returns the group's descriptor.
func (g *Group) Type() GroupType { return g.typ }

// Index returns the group's position in its storage, or -1.
func (g *Group) Index() int { return g.index }

// Size returns the number of slots.
func (g *Group) Size() int { return len(g.slots) }

// Version returns the group's change counter.
func (g *Group) Version() uint64 { return g.counter.Value() }

// Slots returns the member slots in routing order.
func (g *Group) Slots() []*Slot {
	out := make([]*Slot, len(g.slots))
	copy(out, g.slots)
	return out
}

// Slot returns the slot at group-relative index i.
func (g *Group) Slot(i int) *Slot {
	if i < 0 || i >= len(g.slots) {
		panic(contractViolation(ErrCodeSlotIndexOutOfRange, i,
			"group %q has %d slots", g.typ.ID, len(g.slots)))
	}
	return g.slots[i]
}

// IsEmpty reports whether every slot is empty.
func (g *Group) IsEmpty() bool { return g.slots.isEmpty() }

// IsFull reports whether every slot is full.
func (g *Group) IsFull() bool { return g.slots.isFull() }

// ContainsAny reports whether any slot holds t.
func (g *Group) ContainsAny(t *resource.Type) bool {
	return g.slots.containsAny(matchType(t))
}

// ContainsAnyExact reports whether any slot holds (t, meta).
func (g *Group) ContainsAnyExact(t *resource.Type, meta resource.Metadata) bool {
	return g.slots.containsAny(matchExact(t, meta))
}

// Contains reports whether the group holds at least amount units of
// (t, meta) summed over all slots.
func (g *Group) Contains(t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return g.slots.count(matchExact(t, meta)) >= amount
}

// ContainsType reports whether the group holds at least amount units of t
// with any metadata.
func (g *Group) ContainsType(t *resource.Type, amount uint64) bool {
	return g.slots.count(matchType(t)) >= amount
}

// Count returns the total amount of (t, meta) in the group.
func (g *Group) Count(t *resource.Type, meta resource.Metadata) uint64 {
	return g.slots.count(matchExact(t, meta))
}

// CanInsertOne reports whether any slot would accept one unit.
func (g *Group) CanInsertOne(t *resource.Type, meta resource.Metadata) bool {
	return g.slots.canInsertOne(ActorMachine, t, meta)
}

// CanInsert reports whether the group has room for all amount units.
func (g *Group) CanInsert(t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return g.slots.room(ActorMachine, t, meta, amount) >= amount
}

// CanInsertAs is CanInsert for actor.
func (g *Group) CanInsertAs(actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return g.slots.room(actor, t, meta, amount) >= amount
}

// Insert routes up to amount units of (t, meta) into the group.
func (g *Group) Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return g.slots.insert(tx, ActorMachine, t, meta, amount)
}

// InsertAs routes an insertion on behalf of actor, skipping slots whose
// policy or filter rejects it.
func (g *Group) InsertAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return g.slots.insert(tx, actor, t, meta, amount)
}

// InsertOne inserts a single unit.
func (g *Group) InsertOne(tx *txn.Transaction, t *resource.Type, meta resource.Metadata) bool {
	return g.slots.insertOne(tx, ActorMachine, t, meta)
}

// TryInsert returns what Insert would accept without changing anything.
func (g *Group) TryInsert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return g.Insert(tx, t, meta, amount)
	})
}

// ExtractExact removes up to amount units of (t, meta), in slot order.
func (g *Group) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return g.slots.extract(tx, ActorMachine, matchExact(t, meta), amount)
}

// ExtractType removes up to amount units of t with any metadata. A nil t
// takes from every occupied slot.
func (g *Group) ExtractType(tx *txn.Transaction, t *resource.Type, amount uint64) uint64 {
	return g.slots.extract(tx, ActorMachine, matchType(t), amount)
}

// ExtractAs is ExtractExact for actor.
func (g *Group) ExtractAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return g.slots.extract(tx, actor, matchExact(t, meta), amount)
}

// ExtractOne removes a single unit of (t, meta).
func (g *Group) ExtractOne(tx *txn.Transaction, t *resource.Type, meta resource.Metadata) bool {
	return g.ExtractExact(tx, t, meta, 1) == 1
}

// TryExtract returns what ExtractExact would remove.
func (g *Group) TryExtract(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return g.ExtractExact(tx, t, meta, amount)
	})
}
