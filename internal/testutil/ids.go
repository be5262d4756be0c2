package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// FixedIDGenerator returns predetermined storage IDs in order.
//
// Panics once every ID has been handed out, so a test that builds more
// storages than it declared fails loudly.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedIDGenerator returns a generator yielding ids in order.
func NewFixedIDGenerator(ids ...uuid.UUID) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// NewID implements storage.IDGenerator.
func (g *FixedIDGenerator) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SequenceIDGenerator derives version 7 shaped UUIDs from a counter: the
// n-th ID is 00000000-0000-7000-8000-<n as 12 hex digits>. It never runs
// out, which suits scenarios that build storages on demand.
type SequenceIDGenerator struct {
	mu sync.Mutex
	n  uint64
}

// NewSequenceIDGenerator returns a generator whose first ID ends in 1.
func NewSequenceIDGenerator() *SequenceIDGenerator {
	return &SequenceIDGenerator{}
}

// NewID implements storage.IDGenerator.
func (g *SequenceIDGenerator) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	var id uuid.UUID
	id[6] = 0x70
	id[8] = 0x80
	var tail [8]byte
	binary.BigEndian.PutUint64(tail[:], g.n)
	copy(id[10:], tail[2:])
	return id
}
