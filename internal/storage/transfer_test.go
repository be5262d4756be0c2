package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

func TestMoveBetweenSlots(t *testing.T) {
	f := newFixture(t)
	from, to := NewSlot(64), NewSlot(64)
	from.Set(nil, f.a, nil, 40)
	to.Set(nil, f.a, nil, 50)

	assert.Equal(t, uint64(14), Move(nil, from, to, f.a, nil, 30))
	assert.Equal(t, uint64(26), from.Amount())
	assert.Equal(t, uint64(64), to.Amount())
}

func TestMoveNothingAvailable(t *testing.T) {
	f := newFixture(t)
	from, to := NewSlot(64), NewSlot(64)
	from.Set(nil, f.b, nil, 5)

	assert.Equal(t, uint64(0), Move(nil, from, to, f.a, nil, 10))
	assert.Equal(t, uint64(0), Move(nil, nil, to, f.a, nil, 10))
	assert.Equal(t, uint64(0), Move(nil, from, to, f.b, nil, 0))
	assert.True(t, to.IsEmpty())
}

// shortExtractor yields the full amount when first asked and one unit less
// on every later call.
type shortExtractor struct {
	slot  *Slot
	calls int
}

func (s *shortExtractor) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	s.calls++
	if s.calls > 1 && amount > 1 {
		amount--
	}
	return s.slot.ExtractExact(tx, t, meta, amount)
}

func TestMoveIsAtomicWhenExtractionFallsShort(t *testing.T) {
	f := newFixture(t)
	src := NewSlot(64)
	src.Set(nil, f.a, nil, 10)
	dst := NewSlot(64)

	root := txn.Open(nil)
	moved := Move(root, &shortExtractor{slot: src}, dst, f.a, nil, 10)
	root.Commit()

	assert.Equal(t, uint64(0), moved)
	assert.Equal(t, uint64(10), src.Amount())
	assert.True(t, dst.IsEmpty())
}

func TestMoveBetweenStoragesWithActors(t *testing.T) {
	f := newFixture(t)
	machine := f.machine(t)
	machine.Slot(2).Set(nil, f.a, nil, 30)
	chest, err := NewBuilder(f.reg).AddSlots(GroupType{ID: "chest", Policy: PolicyStorage}, 1, 64).Build()
	if err != nil {
		t.Fatal(err)
	}

	// Automation may pull from the output slot into the chest.
	assert.Equal(t, uint64(30), Move(nil, machine.As(ActorExternal), chest.As(ActorExternal), f.a, nil, 64))
	// And may not push back into the output slot, only the inputs.
	assert.Equal(t, uint64(30), Move(nil, chest.As(ActorExternal), machine.As(ActorExternal), f.a, nil, 64))
	assert.True(t, machine.Slot(2).IsEmpty())
	assert.Equal(t, uint64(30), machine.Slot(0).Amount())
}

func TestMoveAllDrainsMatchingSlots(t *testing.T) {
	f := newFixture(t)
	src := newGroup(3, 64)
	src.Slot(0).Set(nil, f.a, nil, 10)
	src.Slot(1).Set(nil, f.b, nil, 10)
	src.Slot(2).Set(nil, f.a, nil, 10)
	dst := newGroup(2, 64)

	assert.True(t, MoveAll(nil, resource.Equals(f.a), src, dst, 64))
	assert.True(t, src.Slot(0).IsEmpty())
	assert.Equal(t, uint64(10), src.Slot(1).Amount())
	assert.True(t, src.Slot(2).IsEmpty())
	assert.Equal(t, uint64(20), dst.Slot(0).Amount())
	assert.True(t, dst.Slot(1).IsEmpty())

	assert.False(t, MoveAll(nil, resource.Equals(f.a), src, dst, 64), "nothing left")
}

func TestMoveAllNilFilterMovesEverything(t *testing.T) {
	f := newFixture(t)
	src := newGroup(2, 64)
	src.Slot(0).Set(nil, f.a, nil, 3)
	src.Slot(1).Set(nil, f.b, nil, 4)
	dst := newGroup(2, 64)

	assert.True(t, MoveAll(nil, nil, src, dst, 100))
	assert.True(t, src.IsEmpty())
	assert.True(t, dst.Contains(f.a, nil, 3))
	assert.True(t, dst.Contains(f.b, nil, 4))
}

func TestMoveAllRollsBackWithEnclosingScope(t *testing.T) {
	f := newFixture(t)
	src := newGroup(1, 64)
	src.Slot(0).Set(nil, f.a, nil, 5)
	dst := newGroup(1, 64)

	tx := txn.Open(nil)
	assert.True(t, MoveAll(tx, nil, src, dst, 5))
	tx.Abort()

	assert.Equal(t, uint64(5), src.Slot(0).Amount())
	assert.True(t, dst.IsEmpty())
}

func TestViewSlotsFilteredByActor(t *testing.T) {
	f := newFixture(t)
	s := f.machine(t)

	assert.Len(t, s.As(ActorExternal).Slots(), 1)
	assert.Len(t, s.As(ActorPlayer).Slots(), 4)
	assert.Len(t, s.As(ActorMachine).Slots(), 4)
	assert.Equal(t, ActorPlayer, s.As(ActorPlayer).Actor())
}
