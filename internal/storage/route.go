package storage

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// slotList implements routing shared by Group and Storage. Slot order is
// the routing order.
type slotList []*Slot

// insert places (t, meta) in two passes: first into slots already holding
// the same resource, then into empty slots, both in slot order.
func (l slotList) insert(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	tx.Check()
	if t == nil || amount == 0 {
		return 0
	}
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		remaining := amount
		for _, s := range l {
			if remaining == 0 {
				break
			}
			if s.Contains(t, meta) {
				remaining -= s.InsertAs(tx, actor, t, meta, remaining)
			}
		}
		for _, s := range l {
			if remaining == 0 {
				break
			}
			if s.IsEmpty() {
				remaining -= s.InsertAs(tx, actor, t, meta, remaining)
			}
		}
		return amount - remaining
	})
}

func (l slotList) extract(tx *txn.Transaction, actor Actor, m match, amount uint64) uint64 {
	tx.Check()
	if amount == 0 {
		return 0
	}
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		remaining := amount
		for _, s := range l {
			if remaining == 0 {
				break
			}
			if s.AllowsExtract(actor) && m.accepts(s) {
				remaining -= s.extract(tx, m, remaining)
			}
		}
		return amount - remaining
	})
}

func (l slotList) insertOne(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata) bool {
	return l.insert(tx, actor, t, meta, 1) == 1
}

func (l slotList) canInsertOne(actor Actor, t *resource.Type, meta resource.Metadata) bool {
	for _, s := range l {
		if s.CanInsertAs(actor, t, meta, 1) {
			return true
		}
	}
	return false
}

// room sums how much of (t, meta) each slot would accept on its own,
// stopping once limit is reached.
func (l slotList) room(actor Actor, t *resource.Type, meta resource.Metadata, limit uint64) uint64 {
	var total uint64
	for _, s := range l {
		if total >= limit {
			break
		}
		if s.AllowsInsert(actor) {
			total += s.acceptable(s.filterFor(actor), t, meta, limit-total)
		}
	}
	return total
}

func (l slotList) count(m match) uint64 {
	var total uint64
	for _, s := range l {
		if m.accepts(s) {
			total += s.amount
		}
	}
	return total
}

func (l slotList) capacity(m match) uint64 {
	var total uint64
	for _, s := range l {
		if m.accepts(s) {
			total += s.RealCapacity()
		}
	}
	return total
}

func (l slotList) containsAny(m match) bool {
	for _, s := range l {
		if m.accepts(s) {
			return true
		}
	}
	return false
}

func (l slotList) isEmpty() bool {
	for _, s := range l {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

func (l slotList) isFull() bool {
	for _, s := range l {
		if !s.IsFull() {
			return false
		}
	}
	return true
}
