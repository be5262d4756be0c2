package storage

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// View is a storage seen through one actor. It is what a host hands to
// automation or a player-facing menu.
type View struct {
	storage *Storage
	actor   Actor
}

// Actor returns the actor the view is bound to.
func (v View) Actor() Actor { return v.actor }

// Insert routes an insertion as the view's actor.
func (v View) Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return v.storage.InsertAs(tx, v.actor, t, meta, amount)
}

// ExtractExact extracts as the view's actor.
func (v View) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return v.storage.ExtractAs(tx, v.actor, t, meta, amount)
}

// Slots returns the slots the actor may extract from, in index order.
func (v View) Slots() []*Slot {
	var out []*Slot
	for _, s := range v.storage.slots {
		if s.AllowsExtract(v.actor) {
			out = append(out, s)
		}
	}
	return out
}
