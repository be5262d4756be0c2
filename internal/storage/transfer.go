package storage

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// Inserter accepts resources. Slot, Group, Storage and View implement it.
type Inserter interface {
	Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64
}

// Extractor gives up resources. Slot, Group, Storage and View implement it.
type Extractor interface {
	ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64
}

// SlotSource exposes the slots MoveAll may drain. Group, Storage and View
// implement it.
type SlotSource interface {
	Slots() []*Slot
}

// Move transfers up to max units of (t, meta) from one endpoint to another
// and returns the amount moved. Either both sides change by the same amount
// or neither changes.
//
// The extractable amount is measured in an aborted scope first; the
// insertion and the matching extraction then run in a nested scope that is
// committed only if the extraction yields exactly what was accepted.
func Move(tx *txn.Transaction, from Extractor, to Inserter, t *resource.Type, meta resource.Metadata, max uint64) uint64 {
	tx.Check()
	if from == nil || to == nil || t == nil || max == 0 {
		return 0
	}
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		available := txn.Simulate(tx, func(test *txn.Transaction) uint64 {
			return from.ExtractExact(test, t, meta, max)
		})
		if available == 0 {
			return 0
		}

		move := txn.Open(tx)
		defer move.Close()
		accepted := to.Insert(move, t, meta, available)
		if accepted == 0 || from.ExtractExact(move, t, meta, accepted) != accepted {
			return 0
		}
		move.Commit()
		return accepted
	})
}

// MoveAll moves up to max units out of every slot of from whose contents
// filter admits, visiting slots in order. It reports whether anything moved.
func MoveAll(tx *txn.Transaction, filter resource.Filter, from SlotSource, to Inserter, max uint64) bool {
	tx.Check()
	if from == nil || to == nil || max == 0 {
		return false
	}
	if filter == nil {
		filter = resource.Always()
	}
	return txn.Do(tx, func(tx *txn.Transaction) bool {
		changed := false
		for _, slot := range from.Slots() {
			t, meta := slot.Resource(), slot.Metadata()
			if t == nil || !filter.Matches(t, meta) {
				continue
			}
			if Move(tx, slot, to, t, meta, max) > 0 {
				changed = true
			}
		}
		return changed
	})
}
