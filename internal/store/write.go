package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/stockpile/internal/storage"
)

// Save appends a revision holding the current state of s.
//
// The first save registers the storage under layout; later saves must use
// the same layout name and slot count. Save reads the storage through
// WriteState, so it panics if a transaction that touched s is still open.
func (s *Store) Save(ctx context.Context, layout string, st *storage.Storage) (Snapshot, error) {
	snap := Snapshot{
		StorageID: st.ID(),
		Layout:    layout,
		Version:   st.Version(),
		Records:   st.WriteState(),
	}

	version, err := versionColumn(snap.Version)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: %w", snap.StorageID, err)
	}

	rows := make([]recordRow, len(snap.Records))
	for i, rec := range snap.Records {
		row, err := marshalRecord(rec)
		if err != nil {
			return Snapshot{}, fmt.Errorf("save storage %s: slot %d: %w", snap.StorageID, i, err)
		}
		rows[i] = row
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save storage: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := registerStorage(ctx, tx, snap.StorageID.String(), layout, len(rows)); err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: %w", snap.StorageID, err)
	}

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(revision) FROM revisions WHERE storage_id = ?
	`, snap.StorageID.String()).Scan(&last); err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: read revision: %w", snap.StorageID, err)
	}
	snap.Revision = last.Int64 + 1

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (storage_id, revision, version)
		VALUES (?, ?, ?)
	`, snap.StorageID.String(), snap.Revision, version); err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: write revision: %w", snap.StorageID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slot_records (storage_id, revision, slot, type_id, metadata, amount)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: prepare: %w", snap.StorageID, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			snap.StorageID.String(),
			snap.Revision,
			i,
			row.typeID,
			row.metadata,
			row.amount,
		); err != nil {
			return Snapshot{}, fmt.Errorf("save storage %s: slot %d: %w", snap.StorageID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("save storage %s: commit: %w", snap.StorageID, err)
	}

	slog.Debug("storage saved",
		"storage", snap.StorageID,
		"revision", snap.Revision,
		"version", snap.Version,
		"slots", len(rows))
	return snap, nil
}

// registerStorage inserts the storage row, or checks that an existing row
// agrees with layout and slot count.
func registerStorage(ctx context.Context, tx *sql.Tx, id, layout string, slots int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO storages (id, layout, slot_count)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, layout, slots); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	var gotLayout string
	var gotSlots int
	if err := tx.QueryRowContext(ctx, `
		SELECT layout, slot_count FROM storages WHERE id = ?
	`, id).Scan(&gotLayout, &gotSlots); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if gotLayout != layout || gotSlots != slots {
		return fmt.Errorf("registered as layout %q with %d slots, got layout %q with %d slots",
			gotLayout, gotSlots, layout, slots)
	}
	return nil
}
