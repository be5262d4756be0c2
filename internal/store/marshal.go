package store

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

// recordRow is a SlotRecord in column form.
type recordRow struct {
	typeID   sql.NullString
	metadata string
	amount   int64
}

// versionColumn converts a storage version for the signed version column.
func versionColumn(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("version %d exceeds storable range", v)
	}
	return int64(v), nil
}

// marshalRecord converts a record to columns. Empty records drop their
// type and metadata so every empty slot stores the same row.
func marshalRecord(rec storage.SlotRecord) (recordRow, error) {
	if rec.IsEmpty() {
		return recordRow{metadata: "{}"}, nil
	}
	if rec.Amount > math.MaxInt64 {
		return recordRow{}, fmt.Errorf("amount %d exceeds storable range", rec.Amount)
	}
	meta, err := resource.MarshalCanonical(rec.Metadata)
	if err != nil {
		return recordRow{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return recordRow{
		typeID:   sql.NullString{String: rec.TypeID, Valid: true},
		metadata: string(meta),
		amount:   int64(rec.Amount),
	}, nil
}

func unmarshalRecord(row recordRow) (storage.SlotRecord, error) {
	if !row.typeID.Valid || row.amount == 0 {
		return storage.SlotRecord{}, nil
	}
	if row.amount < 0 {
		return storage.SlotRecord{}, fmt.Errorf("negative amount %d", row.amount)
	}
	meta, err := resource.UnmarshalMetadata([]byte(row.metadata))
	if err != nil {
		return storage.SlotRecord{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return storage.SlotRecord{
		TypeID:   row.typeID.String,
		Metadata: meta,
		Amount:   uint64(row.amount),
	}, nil
}
