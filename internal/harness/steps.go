package harness

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
	"github.com/roach88/stockpile/internal/txn"
)

// endpoint is a resolved Endpoint. It routes through the narrowest
// addressed unit: slot, then group, then the whole storage.
type endpoint struct {
	storage *storage.Storage
	group   *storage.Group
	slot    *storage.Slot
	actor   storage.Actor
}

func (e endpoint) Insert(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	switch {
	case e.slot != nil:
		return e.slot.InsertAs(tx, e.actor, t, meta, amount)
	case e.group != nil:
		return e.group.InsertAs(tx, e.actor, t, meta, amount)
	default:
		return e.storage.InsertAs(tx, e.actor, t, meta, amount)
	}
}

func (e endpoint) ExtractExact(tx *txn.Transaction, t *resource.Type, meta resource.Metadata, amount uint64) uint64 {
	switch {
	case e.slot != nil:
		return e.slot.ExtractAs(tx, e.actor, t, meta, amount)
	case e.group != nil:
		return e.group.ExtractAs(tx, e.actor, t, meta, amount)
	default:
		return e.storage.ExtractAs(tx, e.actor, t, meta, amount)
	}
}

func (e endpoint) ExtractType(tx *txn.Transaction, t *resource.Type, amount uint64) uint64 {
	switch {
	case e.slot != nil:
		return e.slot.ExtractType(tx, t, amount)
	case e.group != nil:
		return e.group.ExtractType(tx, t, amount)
	default:
		return e.storage.ExtractType(tx, t, amount)
	}
}

func (e endpoint) Slots() []*storage.Slot {
	switch {
	case e.slot != nil:
		return []*storage.Slot{e.slot}
	case e.group != nil:
		return e.group.Slots()
	default:
		return e.storage.As(e.actor).Slots()
	}
}

// execute runs one step and describes it as a trace event. Contract and
// misuse panics are recovered into the event; any other panic propagates.
func (h *Harness) execute(step Step) (ev TraceEvent, err error) {
	ev = TraceEvent{
		Type:     EventStep,
		Op:       step.Op,
		Resource: step.Resource,
		Amount:   step.Amount,
	}
	if step.Storage != "" {
		at := step.Endpoint
		ev.At = &at
	}
	if step.To != nil {
		to := *step.To
		ev.To = &to
	}

	meta, err := resource.FromMap(step.Metadata)
	if err != nil {
		return ev, fmt.Errorf("metadata: %w", err)
	}
	meta = resource.Strip(meta)
	ev.Metadata = meta

	defer func() {
		if r := recover(); r != nil {
			code, ok := panicCode(r)
			if !ok {
				panic(r)
			}
			ev.Panic = code
			ev.Result = nil
		}
	}()

	ev.Result, err = h.apply(step, meta)
	return ev, err
}

func (h *Harness) apply(step Step, meta resource.Metadata) (*uint64, error) {
	tx := h.current()

	switch step.Op {
	case OpBegin:
		h.scopes = append(h.scopes, txn.Open(tx))
		return nil, nil
	case OpCommit, OpAbort:
		idx, err := h.scopeIndex(step)
		if err != nil {
			return nil, err
		}
		scope := h.scopes[idx]
		if step.Op == OpCommit {
			scope.Commit()
		} else {
			scope.Abort()
		}
		h.scopes = h.scopes[:idx]
		return nil, nil
	}

	t, err := h.lookupResource(step.Resource)
	if err != nil {
		return nil, err
	}
	from, err := h.resolve(step.Endpoint)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case OpInsert:
		return amountResult(from.Insert(tx, t, meta, step.Amount)), nil

	case OpExtract:
		if t == nil {
			return amountResult(from.slot.Extract(tx, step.Amount)), nil
		}
		return amountResult(from.ExtractExact(tx, t, meta, step.Amount)), nil

	case OpExtractType:
		return amountResult(from.ExtractType(tx, t, step.Amount)), nil

	case OpConsume:
		return amountResult(from.slot.Consume(tx, step.Amount)), nil

	case OpSet:
		from.slot.Set(tx, t, meta, step.Amount)
		return nil, nil
	}

	if step.To == nil {
		return nil, fmt.Errorf("%s: to is required", step.Op)
	}
	to, err := h.resolve(*step.To)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case OpMove:
		return amountResult(storage.Move(tx, from, to, t, meta, limit(step.Amount))), nil

	case OpMoveAll:
		var filter resource.Filter
		if t != nil {
			filter = resource.Equals(t)
		}
		if storage.MoveAll(tx, filter, from, to, limit(step.Amount)) {
			return amountResult(1), nil
		}
		return amountResult(0), nil

	case OpSync:
		src, dst := h.trackers[step.Storage], h.trackers[step.To.Storage]
		dirty := len(src.Dirty())
		data, err := src.WriteDelta(nil)
		if err != nil {
			return nil, err
		}
		if err := dst.ReadDelta(tx, data); err != nil {
			return nil, err
		}
		return amountResult(uint64(dirty)), nil

	case OpCopy:
		records := from.storage.WriteState()
		if err := to.storage.ReadState(records); err != nil {
			return nil, err
		}
		return amountResult(uint64(len(records))), nil
	}

	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) scopeIndex(step Step) (int, error) {
	if len(h.scopes) == 0 {
		return 0, errors.New("no open transaction scope")
	}
	if step.Scope == nil {
		return len(h.scopes) - 1, nil
	}
	idx := *step.Scope
	if idx < 0 || idx >= len(h.scopes) {
		return 0, fmt.Errorf("scope %d out of range: %d open", idx, len(h.scopes))
	}
	return idx, nil
}

func (h *Harness) lookupResource(id string) (*resource.Type, error) {
	if id == "" {
		return nil, nil
	}
	t, ok := h.catalog.Registry().Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", id)
	}
	return t, nil
}

// resolve looks up e. Slot indices are checked by the storage itself, so
// an out-of-range index panics with SLOT_INDEX_OUT_OF_RANGE.
func (h *Harness) resolve(e Endpoint) (endpoint, error) {
	s, ok := h.storages[e.Storage]
	if !ok {
		return endpoint{}, fmt.Errorf("unknown storage %q", e.Storage)
	}
	actor, err := storage.ParseActor(e.Actor)
	if err != nil {
		return endpoint{}, err
	}

	ep := endpoint{storage: s, actor: actor}
	if e.Group != "" {
		g, ok := s.GroupByID(e.Group)
		if !ok {
			return endpoint{}, fmt.Errorf("storage %q has no group %q", e.Storage, e.Group)
		}
		ep.group = g
	}
	if e.Slot != nil {
		if ep.group != nil {
			ep.slot = ep.group.Slot(*e.Slot)
		} else {
			ep.slot = s.Slot(*e.Slot)
		}
	}
	return ep, nil
}

// limit maps an unset move amount to "everything".
func limit(amount uint64) uint64 {
	if amount == 0 {
		return math.MaxUint64
	}
	return amount
}

func panicCode(v any) (string, bool) {
	err, ok := v.(error)
	if !ok {
		return "", false
	}
	var ce *storage.ContractError
	if errors.As(err, &ce) {
		return string(ce.Code), true
	}
	var me *txn.MisuseError
	if errors.As(err, &me) {
		return string(me.Code), true
	}
	return "", false
}
