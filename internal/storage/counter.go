package storage

import "github.com/roach88/stockpile/internal/txn"

// ChangeCounter is a monotonic version stamp that rolls back with the
// transaction that bumped it.
type ChangeCounter struct {
	value uint64
}

// Value returns the current version.
func (c *ChangeCounter) Value() uint64 {
	return c.value
}

// Bump increments the counter inside tx.
func (c *ChangeCounter) Bump(tx *txn.Transaction) {
	tx.Track(c)
	c.value++
}

// CaptureState implements txn.Participant.
func (c *ChangeCounter) CaptureState() any {
	return c.value
}

// RestoreState implements txn.Participant.
func (c *ChangeCounter) RestoreState(state any) {
	c.value = state.(uint64)
}
