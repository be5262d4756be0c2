package storage

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

// SyncTracker remembers each slot's version at the last sync point and
// encodes only the slots that changed since.
//
// Delta wire format, all integers as unsigned varints:
//
//	count
//	count x { index, len(type) type, len(meta) meta, amount }
//
// meta is the canonical JSON encoding of the slot's metadata, or empty.
type SyncTracker struct {
	storage *Storage
	seen    []uint64
}

// NewSyncTracker starts tracking s from its current state.
func NewSyncTracker(s *Storage) *SyncTracker {
	t := &SyncTracker{storage: s, seen: make([]uint64, len(s.slots))}
	for i, slot := range s.slots {
		t.seen[i] = slot.Version()
	}
	return t
}

// NeedsSync reports whether any slot changed since the last WriteDelta.
func (t *SyncTracker) NeedsSync() bool {
	for i, slot := range t.storage.slots {
		if slot.Version() != t.seen[i] {
			return true
		}
	}
	return false
}

// Dirty returns the indices of slots changed since the last WriteDelta.
func (t *SyncTracker) Dirty() []int {
	var dirty []int
	for i, slot := range t.storage.slots {
		if slot.Version() != t.seen[i] {
			dirty = append(dirty, i)
		}
	}
	return dirty
}

// WriteDelta appends the changed slots to buf and marks them synced.
//
// Calling it while a transaction that touched the storage is open panics
// with ErrCodeTransactionOpen, as for Storage.WriteState. On error buf is
// discarded and no slot is marked synced.
func (t *SyncTracker) WriteDelta(buf []byte) ([]byte, error) {
	t.storage.requireNoTransaction("WriteDelta")

	dirty := t.Dirty()
	versions := make([]uint64, len(dirty))
	buf = protowire.AppendVarint(buf, uint64(len(dirty)))
	for n, i := range dirty {
		slot := t.storage.slots[i]
		rec := slot.Record()
		versions[n] = slot.Version()

		var meta []byte
		if len(rec.Metadata) > 0 {
			encoded, err := resource.MarshalCanonical(rec.Metadata)
			if err != nil {
				return nil, fmt.Errorf("write delta: slot %d: %w", i, err)
			}
			meta = encoded
		}

		buf = protowire.AppendVarint(buf, uint64(i))
		buf = protowire.AppendString(buf, rec.TypeID)
		buf = protowire.AppendBytes(buf, meta)
		buf = protowire.AppendVarint(buf, rec.Amount)
	}
	for n, i := range dirty {
		t.seen[i] = versions[n]
	}
	return buf, nil
}

type deltaEntry struct {
	index  int
	t      *resource.Type
	meta   resource.Metadata
	amount uint64
}

var errTruncated = errors.New("truncated delta")

// ReadDelta applies a delta produced by WriteDelta, bypassing filters. Every
// listed slot has its version bumped even if its contents are unchanged.
// The whole delta is decoded and validated before anything is applied.
func (t *SyncTracker) ReadDelta(tx *txn.Transaction, data []byte) error {
	tx.Check()
	entries, err := t.decode(data)
	if err != nil {
		return fmt.Errorf("read delta: %w", err)
	}

	txn.Do(tx, func(tx *txn.Transaction) struct{} {
		for _, e := range entries {
			slot := t.storage.slots[e.index]
			slot.Set(tx, e.t, e.meta, e.amount)
			slot.MarkModified(tx)
		}
		return struct{}{}
	})
	return nil
}

func (t *SyncTracker) decode(data []byte) ([]deltaEntry, error) {
	count, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, errTruncated
	}
	data = data[n:]
	if count > uint64(len(t.storage.slots)) {
		return nil, fmt.Errorf("delta lists %d slots, storage has %d", count, len(t.storage.slots))
	}

	entries := make([]deltaEntry, 0, count)
	for k := uint64(0); k < count; k++ {
		index, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, errTruncated
		}
		data = data[n:]
		if index >= uint64(len(t.storage.slots)) {
			return nil, fmt.Errorf("slot index %d out of range [0,%d)", index, len(t.storage.slots))
		}

		typeID, n := protowire.ConsumeString(data)
		if n < 0 {
			return nil, errTruncated
		}
		data = data[n:]

		rawMeta, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, errTruncated
		}
		data = data[n:]

		amount, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, errTruncated
		}
		data = data[n:]

		rec := SlotRecord{TypeID: typeID, Amount: amount}
		if len(rawMeta) > 0 {
			meta, err := resource.UnmarshalMetadata(rawMeta)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", index, err)
			}
			rec.Metadata = meta
		}
		typ, err := t.storage.resolve(int(index), rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, deltaEntry{index: int(index), t: typ, meta: rec.Metadata, amount: rec.Amount})
	}
	if len(data) > 0 {
		return nil, fmt.Errorf("%d trailing bytes after delta", len(data))
	}
	return entries, nil
}
