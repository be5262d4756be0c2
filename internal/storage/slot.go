package storage

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// CapacityFunc computes how many units of t fit in a slot whose nominal
// capacity is nominal.
type CapacityFunc func(t *resource.Type, nominal uint64) uint64

// TypeCapped is the default CapacityFunc: the smaller of the slot's nominal
// capacity and the type's MaxAmount.
func TypeCapped(t *resource.Type, nominal uint64) uint64 {
	if t == nil || t.MaxAmount == 0 {
		return nominal
	}
	return min(nominal, t.MaxAmount)
}

// Fixed ignores the resource type and always returns the nominal capacity.
func Fixed(_ *resource.Type, nominal uint64) uint64 {
	return nominal
}

// SlotOption configures a Slot.
type SlotOption func(*Slot)

// WithFilter sets the loose filter. The strict filter follows it unless
// set separately.
func WithFilter(f resource.Filter) SlotOption {
	return func(s *Slot) {
		s.filter = f
	}
}

// WithStrictFilter sets the filter used for player insertion.
func WithStrictFilter(f resource.Filter) SlotOption {
	return func(s *Slot) {
		s.strict = f
	}
}

// WithPolicy sets the slot's IO policy.
func WithPolicy(p IOPolicy) SlotOption {
	return func(s *Slot) {
		s.policy = p
		s.policySet = true
	}
}

// WithCapacityFunc overrides how per-type capacity is computed.
func WithCapacityFunc(fn CapacityFunc) SlotOption {
	return func(s *Slot) {
		s.capacityFunc = fn
	}
}

// Slot is a single storage cell holding at most one resource (type plus
// metadata) up to a capacity.
//
// Invariants, outside an in-flight mutation:
//   - Resource() == nil iff Amount() == 0
//   - Amount() <= CapacityFor(Resource())
//   - Metadata() is nil whenever it would be empty
type Slot struct {
	index int
	group *Group

	capacity     uint64
	capacityFunc CapacityFunc
	filter       resource.Filter
	strict       resource.Filter
	policy       IOPolicy
	policySet    bool

	res     *resource.Type
	meta    resource.Metadata
	amount  uint64
	version uint64
}

type slotState struct {
	res     *resource.Type
	meta    resource.Metadata
	amount  uint64
	version uint64
}

// NewSlot creates an empty slot with the given nominal capacity.
// Defaults: filter admits everything, strict filter equals the filter,
// policy is PolicyStorage, capacity is capped by the type's MaxAmount.
func NewSlot(capacity uint64, opts ...SlotOption) *Slot {
	s := &Slot{
		index:        -1,
		capacity:     capacity,
		capacityFunc: TypeCapped,
		filter:       resource.Always(),
		policy:       PolicyStorage,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.strict == nil {
		s.strict = s.filter
	}
	return s
}

// CaptureState implements txn.Participant.
func (s *Slot) CaptureState() any {
	return slotState{res: s.res, meta: s.meta, amount: s.amount, version: s.version}
}

// RestoreState implements txn.Participant.
func (s *Slot) RestoreState(state any) {
	st := state.(slotState)
	s.res = st.res
	s.meta = st.meta
	s.amount = st.amount
	s.version = st.version
}

// Index returns the slot's position in its storage, or -1 for a slot that
// is not part of one.
func (s *Slot) Index() int { return s.index }

// Group returns the owning group, or nil.
func (s *Slot) Group() *Group { return s.group }

// Policy returns the slot's IO policy.
func (s *Slot) Policy() IOPolicy { return s.policy }

// Filter returns the loose filter.
func (s *Slot) Filter() resource.Filter { return s.filter }

// StrictFilter returns the filter applied to player insertion.
func (s *Slot) StrictFilter() resource.Filter { return s.strict }

// Resource returns the held type, or nil when empty.
func (s *Slot) Resource() *resource.Type { return s.res }

// Metadata returns the held metadata, or nil.
func (s *Slot) Metadata() resource.Metadata { return s.meta }

// Amount returns the held quantity.
func (s *Slot) Amount() uint64 { return s.amount }

// Capacity returns the nominal capacity.
func (s *Slot) Capacity() uint64 { return s.capacity }

// Version returns the local change counter.
func (s *Slot) Version() uint64 { return s.version }

// CapacityFor returns how many units of t this slot can hold.
func (s *Slot) CapacityFor(t *resource.Type) uint64 {
	return s.capacityFunc(t, s.capacity)
}

// RealCapacity is the capacity for the held resource, or the nominal
// capacity when empty.
func (s *Slot) RealCapacity() uint64 {
	if s.res == nil {
		return s.capacity
	}
	return s.CapacityFor(s.res)
}

// IsEmpty reports whether the slot holds nothing.
func (s *Slot) IsEmpty() bool {
	return s.amount == 0
}

// IsFull reports whether the slot is at capacity for its resource.
func (s *Slot) IsFull() bool {
	return s.amount > 0 && s.amount >= s.RealCapacity()
}

// Contains reports whether the slot holds exactly (t, meta).
func (s *Slot) Contains(t *resource.Type, meta resource.Metadata) bool {
	return s.res != nil && s.res == t && resource.Equal(s.meta, meta)
}

// ContainsType reports whether the slot holds t with any metadata.
func (s *Slot) ContainsType(t *resource.Type) bool {
	return s.res != nil && s.res == t
}

// Record returns the slot's state as a serializable record.
func (s *Slot) Record() SlotRecord {
	if s.res == nil {
		return SlotRecord{}
	}
	return SlotRecord{TypeID: s.res.ID, Metadata: s.meta, Amount: s.amount}
}

// Admits reports whether actor's filter accepts (t, meta). It does not
// consider the IO policy or current contents.
func (s *Slot) Admits(actor Actor, t *resource.Type, meta resource.Metadata) bool {
	return s.filterFor(actor).Matches(t, meta)
}

// AllowsInsert reports whether the IO policy lets actor insert.
func (s *Slot) AllowsInsert(actor Actor) bool {
	return actor.mayInsert(s.policy)
}

// AllowsExtract reports whether the IO policy lets actor extract.
func (s *Slot) AllowsExtract(actor Actor) bool {
	return actor.mayExtract(s.policy)
}

func (s *Slot) filterFor(actor Actor) resource.Filter {
	if actor == ActorPlayer {
		return s.strict
	}
	return s.filter
}

// CanInsert reports whether at least one unit of (t, meta) would be
// accepted: the slot is empty or holds the same resource, the filter
// admits it, and there is room.
func (s *Slot) CanInsert(t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return s.acceptable(s.filter, t, meta, amount) > 0
}

// CanInsertOne is CanInsert with amount 1.
func (s *Slot) CanInsertOne(t *resource.Type, meta resource.Metadata) bool {
	return s.CanInsert(t, meta, 1)
}

// CanInsertAs is CanInsert for actor, including the IO policy check.
func (s *Slot) CanInsertAs(actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return s.AllowsInsert(actor) && s.acceptable(s.filterFor(actor), t, meta, amount) > 0
}

// CanExtract reports whether at least amount units of anything are present.
func (s *Slot) CanExtract(amount uint64) bool {
	return s.amount >= amount
}

// CanExtractType reports whether at least amount units of t are present.
func (s *Slot) CanExtractType(t *resource.Type, amount uint64) bool {
	return s.ContainsType(t) && s.amount >= amount
}

// CanExtractExact reports whether at least amount units of (t, meta) are present.
func (s *Slot) CanExtractExact(t *resource.Type, meta resource.Metadata, amount uint64) bool {
	return s.Contains(t, meta) && s.amount >= amount
}

// Insert adds up to amount units of (t, meta) through the loose filter and
// returns how many were accepted.
func (s *Slot) Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.insertWith(tx, s.filter, t, meta, amount)
}

// InsertAs inserts on behalf of actor. It returns 0 if the IO policy
// forbids actor from inserting.
func (s *Slot) InsertAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	tx.Check()
	if !s.AllowsInsert(actor) {
		return 0
	}
	return s.insertWith(tx, s.filterFor(actor), t, meta, amount)
}

// InsertOne inserts a single unit and reports whether it was accepted.
func (s *Slot) InsertOne(tx *txn.Transaction, t *resource.Type, meta resource.Metadata) bool {
	return s.Insert(tx, t, meta, 1) == 1
}

// TryInsert returns what Insert would accept without changing anything.
func (s *Slot) TryInsert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.Insert(tx, t, meta, amount)
	})
}

func (s *Slot) insertWith(tx *txn.Transaction, filter resource.Filter, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	tx.Check()
	n := s.acceptable(filter, t, meta, amount)
	if n == 0 {
		return 0
	}
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		s.touch(tx)
		if s.res == nil {
			s.res = t
			s.meta = resource.Strip(meta)
		}
		s.amount += n
		return n
	})
}

func (s *Slot) acceptable(filter resource.Filter, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	if t == nil || amount == 0 {
		return 0
	}
	if s.res != nil && !s.Contains(t, meta) {
		return 0
	}
	if !filter.Matches(t, meta) {
		return 0
	}
	capacity := s.CapacityFor(t)
	if s.amount >= capacity {
		return 0
	}
	return min(amount, capacity-s.amount)
}

// match selects what an extraction may take. A nil type matches anything;
// exact also requires equal metadata.
type match struct {
	t     *resource.Type
	meta  resource.Metadata
	exact bool
}

func matchAny() match { return match{} }

func matchType(t *resource.Type) match { return match{t: t} }

func matchExact(t *resource.Type, meta resource.Metadata) match {
	return match{t: t, meta: meta, exact: true}
}

func (m match) accepts(s *Slot) bool {
	if s.res == nil {
		return false
	}
	if m.t == nil {
		return true
	}
	if m.exact {
		return s.Contains(m.t, m.meta)
	}
	return s.res == m.t
}

// Extract removes up to amount units of whatever the slot holds.
func (s *Slot) Extract(tx *txn.Transaction, amount uint64) uint64 {
	return s.extract(tx, matchAny(), amount)
}

// ExtractType removes up to amount units if the slot holds t, regardless
// of metadata. A nil t matches anything.
func (s *Slot) ExtractType(tx *txn.Transaction, t *resource.Type, amount uint64) uint64 {
	return s.extract(tx, matchType(t), amount)
}

// ExtractExact removes up to amount units if the slot holds exactly
// (t, meta).
func (s *Slot) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return s.extract(tx, matchExact(t, meta), amount)
}

// ExtractAs is ExtractExact for actor. It returns 0 if the IO policy
// forbids actor from extracting.
func (s *Slot) ExtractAs(tx *txn.Transaction, actor Actor, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	tx.Check()
	if !s.AllowsExtract(actor) {
		return 0
	}
	return s.ExtractExact(tx, t, meta, amount)
}

// ExtractOne removes a single unit of anything.
func (s *Slot) ExtractOne(tx *txn.Transaction) bool {
	return s.Extract(tx, 1) == 1
}

// ExtractOneType removes a single unit of t.
func (s *Slot) ExtractOneType(tx *txn.Transaction, t *resource.Type) bool {
	return s.ExtractType(tx, t, 1) == 1
}

// ExtractOneExact removes a single unit of (t, meta).
func (s *Slot) ExtractOneExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata) bool {
	return s.ExtractExact(tx, t, meta, 1) == 1
}

// TryExtract returns what Extract would remove without changing anything.
func (s *Slot) TryExtract(tx *txn.Transaction, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.Extract(tx, amount)
	})
}

// TryExtractType returns what ExtractType would remove.
func (s *Slot) TryExtractType(tx *txn.Transaction, t *resource.Type, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.ExtractType(tx, t, amount)
	})
}

// TryExtractExact returns what ExtractExact would remove.
func (s *Slot) TryExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	return txn.Simulate(tx, func(tx *txn.Transaction) uint64 {
		return s.ExtractExact(tx, t, meta, amount)
	})
}

func (s *Slot) extract(tx *txn.Transaction, m match, amount uint64) uint64 {
	tx.Check()
	if amount == 0 || !m.accepts(s) {
		return 0
	}
	n := min(amount, s.amount)
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		s.touch(tx)
		s.amount -= n
		if s.amount == 0 {
			s.res = nil
			s.meta = nil
		}
		return n
	})
}

// Consume removes up to amount units of whatever the slot holds. If that
// empties the slot and the consumed type has a Remainder, the remainder is
// placed in the slot (as many units as were consumed, up to its capacity).
func (s *Slot) Consume(tx *txn.Transaction, amount uint64) uint64 {
	tx.Check()
	held := s.res
	if held == nil {
		return 0
	}
	return txn.Do(tx, func(tx *txn.Transaction) uint64 {
		n := s.Extract(tx, amount)
		if n > 0 && held.Remainder != nil && s.IsEmpty() {
			s.insertWith(tx, resource.Always(), held.Remainder, nil, n)
		}
		return n
	})
}

// ConsumeOne consumes a single unit.
func (s *Slot) ConsumeOne(tx *txn.Transaction) bool {
	return s.Consume(tx, 1) == 1
}

// Set overwrites the slot's contents, bypassing filters. A nil type or a
// zero amount empties the slot. Setting the current contents again is a
// no-op and does not bump the version.
//
// Set panics with ErrCodeInvalidState if amount exceeds CapacityFor(t).
func (s *Slot) Set(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) {
	if t == nil || amount == 0 {
		t, meta, amount = nil, nil, 0
	}
	if t != nil && amount > s.CapacityFor(t) {
		panic(contractViolation(ErrCodeInvalidState, s.index,
			"set %d of %s exceeds capacity %d", amount, t.ID, s.CapacityFor(t)))
	}
	tx.Check()
	meta = resource.Strip(meta)
	if s.res == t && s.amount == amount && resource.Equal(s.meta, meta) {
		return
	}
	txn.Do(tx, func(tx *txn.Transaction) struct{} {
		s.touch(tx)
		s.res = t
		s.meta = meta
		s.amount = amount
		return struct{}{}
	})
}

// MarkModified bumps the slot's version without changing its contents.
func (s *Slot) MarkModified(tx *txn.Transaction) {
	txn.Do(tx, func(tx *txn.Transaction) struct{} {
		s.touch(tx)
		return struct{}{}
	})
}

func (s *Slot) touch(tx *txn.Transaction) {
	tx.Track(s)
	s.version++
	if s.group != nil {
		s.group.touched(tx)
	}
}
