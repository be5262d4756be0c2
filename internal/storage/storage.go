package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// SlotRecord is the serialized form of one slot. An empty slot has an empty
// TypeID and a zero Amount.
type SlotRecord struct {
	TypeID   string            `json:"type,omitempty"`
	Metadata resource.Metadata `json:"metadata,omitempty"`
	Amount   uint64            `json:"amount,omitempty"`
}

// IsEmpty reports whether the record describes an empty slot.
func (r SlotRecord) IsEmpty() bool {
	return r.TypeID == "" || r.Amount == 0
}

// Observer receives the outcome of every root transaction that touched a
// storage.
type Observer interface {
	// BatchCommitted is called after the listener for a committed batch
	// that changed the storage.
	BatchCommitted(s *Storage)

	// BatchAborted is called when a root transaction that touched the
	// storage aborts. Simulated roots (txn.Simulate with a nil parent) are
	// not reported.
	BatchAborted(s *Storage)
}

// Storage composes groups into one index space. Slot i of the storage is
// the i-th slot in group order.
type Storage struct {
	id       uuid.UUID
	registry *resource.Registry
	groups   []*Group
	slots    slotList
	counter  ChangeCounter

	listener     func()
	observer     Observer
	open         int
	capabilities map[CapabilityKind]CapabilityProvider
}

// New composes groups into a storage identified by id. Types in records
// read back by ReadState are resolved through registry.
//
// A group that already belongs to a storage panics with ErrCodeSlotOwned.
func New(id uuid.UUID, registry *resource.Registry, groups ...*Group) *Storage {
	s := &Storage{
		id:       id,
		registry: registry,
		groups:   groups,
	}
	for gi, g := range groups {
		if g.storage != nil {
			panic(contractViolation(ErrCodeSlotOwned, -1, "group %q already belongs to storage %s", g.typ.ID, g.storage.id))
		}
		g.storage = s
		g.index = gi
		for _, slot := range g.slots {
			slot.index = len(s.slots)
			s.slots = append(s.slots, slot)
		}
	}
	return s
}

func (s *Storage) touched(tx *txn.Transaction) {
	start := s.counter.Value()
	root := tx.Root()
	if tx.Enlist(s, func(result txn.Result) { s.rootClosed(result, start, root.Simulation()) }) {
		s.open++
	}
	s.counter.Bump(tx)
}

func (s *Storage) rootClosed(result txn.Result, start uint64, simulated bool) {
	s.open--
	if result == txn.Aborted {
		if s.observer != nil && !simulated {
			s.observer.BatchAborted(s)
		}
		return
	}
	if s.counter.Value() == start {
		return
	}
	if s.listener != nil {
		s.listener()
	}
	if s.observer != nil {
		s.observer.BatchCommitted(s)
	}
}

// ID returns the storage's identity.
func (s *Storage) ID() uuid.UUID { return s.id }

// Registry returns the registry used to resolve serialized type IDs.
func (s *Storage) Registry() *resource.Registry { return s.registry }

// Version returns the storage-wide change counter. It advances on every
// slot mutation and rolls back with aborted transactions.
func (s *Storage) Version() uint64 { return s.counter.Value() }

// SetListener installs fn to be called once per committed root transaction
// that changed the storage. Aborted work never notifies.
func (s *Storage) SetListener(fn func()) { s.listener = fn }

// SetObserver installs o. Pass nil to remove it.
func (s *Storage) SetObserver(o Observer) { s.observer = o }

// InTransaction reports whether a transaction that touched the storage is
// still open. A root scope counts from the first mutation that reaches the
// storage until it closes; open scopes that have not touched the storage
// are not tracked and do not count.
func (s *Storage) InTransaction() bool { return s.open > 0 }

// Size returns the number of slots.
func (s *Storage) Size() int { return len(s.slots) }

// Groups returns the groups in index order.
func (s *Storage) Groups() []*Group {
	out := make([]*Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group returns the group at index i.
func (s *Storage) Group(i int) *Group {
	if i < 0 || i >= len(s.groups) {
		panic(contractViolation(ErrCodeGroupIndexOutOfRange, -1,
			"group index %d out of range [0,%d)", i, len(s.groups)))
	}
	return s.groups[i]
}

// GroupByID returns the first group whose type has the given ID.
func (s *Storage) GroupByID(id string) (*Group, bool) {
	for _, g := range s.groups {
		if g.typ.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Slots returns every slot in index order.
func (s *Storage) Slots() []*Slot {
	out := make([]*Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Slot returns the slot at absolute index i. An index outside 0..Size()
// panics with ErrCodeSlotIndexOutOfRange.
func (s *Storage) Slot(i int) *Slot {
	if i < 0 || i >= len(s.slots) {
		panic(contractViolation(ErrCodeSlotIndexOutOfRange, i,
			"slot index out of range [0,%d)", len(s.slots)))
	}
	return s.slots[i]
}

// IsEmpty reports whether every slot is empty.
func (s *Storage) IsEmpty() bool { return s.slots.isEmpty() }

// IsEmptyAt reports whether slot i is empty.
func (s *Storage) IsEmptyAt(i int) bool { return s.Slot(i).IsEmpty() }

// IsFullAt reports whether slot i is full.
func (s *Storage) IsFullAt(i int) bool { return s.Slot(i).IsFull() }

// InsertAt inserts into slot i.
func (s *Storage) InsertAt(tx *txn.Transaction, i int, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.Slot(i).Insert(tx, t, meta, amount)
}

// ExtractAt extracts whatever slot i holds.
func (s *Storage) ExtractAt(tx *txn.Transaction, i int, amount uint64) uint64 {
	return s.Slot(i).Extract(tx, amount)
}

// Insert routes an insertion across the whole storage as a machine.
func (s *Storage) Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.slots.insert(tx, ActorMachine, t, meta, amount)
}

// InsertAs routes an insertion across the whole storage on behalf of actor,
// honouring each slot's policy and the actor's filter.
func (s *Storage) InsertAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.slots.insert(tx, actor, t, meta, amount)
}

// TryInsertAs returns what InsertAs would accept without changing anything.
func (s *Storage) TryInsertAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.InsertAs(tx, actor, t, meta, amount)
	})
}

// ExtractExact removes up to amount units of (t, meta) across the storage.
func (s *Storage) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.slots.extract(tx, ActorMachine, matchExact(t, meta), amount)
}

// ExtractType removes up to amount units of t with any metadata.
func (s *Storage) ExtractType(tx *txn.Transaction, t *resource.Type, amount uint64) uint64 {
	return s.slots.extract(tx, ActorMachine, matchType(t), amount)
}

// ExtractAs is ExtractExact on behalf of actor.
func (s *Storage) ExtractAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.slots.extract(tx, actor, matchExact(t, meta), amount)
}

// TryExtractAs returns what ExtractAs would remove.
func (s *Storage) TryExtractAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.ExtractAs(tx, actor, t, meta, amount)
	})
}

// CanInsertAs reports whether the storage has room for all amount units
// for actor.
func (s *Storage) CanInsertAs(actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return s.slots.room(actor, t, meta, amount) >= amount
}

// Contains reports whether at least amount units of (t, meta) are stored.
func (s *Storage) Contains(t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return s.slots.count(matchExact(t, meta)) >= amount
}

// CountOf returns the total amount of (t, meta) across all slots.
func (s *Storage) CountOf(t *resource.Type, meta resource.Metadata) uint64 {
	return s.slots.count(matchExact(t, meta))
}

// CapacityOf returns the summed capacity of the slots holding (t, meta).
func (s *Storage) CapacityOf(t *resource.Type, meta resource.Metadata) uint64 {
	return s.slots.capacity(matchExact(t, meta))
}

// As returns a view of the storage bound to actor.
func (s *Storage) As(actor Actor) View {
	return View{storage: s, actor: actor}
}

func (s *Storage) requireNoTransaction(op string) {
	if s.open > 0 {
		panic(contractViolation(ErrCodeTransactionOpen, -1,
			"%s called while %d transaction(s) touching storage %s are open", op, s.open, s.id))
	}
}

// WriteState returns one record per slot in index order.
//
// Calling it while a transaction that touched the storage is open panics
// with ErrCodeTransactionOpen. Scopes that have not touched the storage do
// not count; see InTransaction.
func (s *Storage) WriteState() []SlotRecord {
	s.requireNoTransaction("WriteState")
	records := make([]SlotRecord, len(s.slots))
	for i, slot := range s.slots {
		records[i] = slot.Record()
	}
	return records
}

// ReadState overwrites every slot from records, bypassing filters. Records
// are validated before anything is written, so on error the storage is
// unchanged. The listener fires once if anything changed.
//
// Calling it while a transaction that touched the storage is open panics
// with ErrCodeTransactionOpen. Scopes that have not touched the storage do
// not count; see InTransaction.
func (s *Storage) ReadState(records []SlotRecord) error {
	s.requireNoTransaction("ReadState")
	if len(records) != len(s.slots) {
		return fmt.Errorf("read state: got %d records for %d slots", len(records), len(s.slots))
	}

	types := make([]*resource.Type, len(records))
	for i, rec := range records {
		t, err := s.resolve(i, rec)
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}
		types[i] = t
	}

	tx := txn.Open(nil)
	defer tx.Close()
	for i, rec := range records {
		s.slots[i].Set(tx, types[i], rec.Metadata, rec.Amount)
	}
	tx.Commit()
	return nil
}

func (s *Storage) resolve(i int, rec SlotRecord) (*resource.Type, error) {
	if rec.IsEmpty() {
		return nil, nil
	}
	t, ok := s.registry.Lookup(rec.TypeID)
	if !ok {
		return nil, fmt.Errorf("slot %d: unknown resource type %q", i, rec.TypeID)
	}
	if capacity := s.slots[i].CapacityFor(t); rec.Amount > capacity {
		return nil, fmt.Errorf("slot %d: amount %d of %s exceeds capacity %d", i, rec.Amount, t.ID, capacity)
	}
	return t, nil
}
