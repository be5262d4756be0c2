package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roach88/stockpile/internal/storage"
)

// ErrNotFound is returned when no revision matches a read.
var ErrNotFound = errors.New("not found")

// Snapshot is one persisted revision of a storage.
type Snapshot struct {
	StorageID uuid.UUID            `json:"storage_id"`
	Layout    string               `json:"layout"`
	Revision  int64                `json:"revision"`
	Version   uint64               `json:"version"`
	Records   []storage.SlotRecord `json:"records"`
}

// RevisionInfo summarises a revision without its records.
type RevisionInfo struct {
	Revision int64  `json:"revision"`
	Version  uint64 `json:"version"`
	Occupied int    `json:"occupied"`
}

// StorageInfo summarises a persisted storage.
type StorageInfo struct {
	ID        uuid.UUID `json:"id"`
	Layout    string    `json:"layout"`
	Slots     int       `json:"slots"`
	Revisions int       `json:"revisions"`
}

// Latest returns the most recent revision of a storage.
// Returns ErrNotFound if the storage was never saved.
func (s *Store) Latest(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.readRevision(ctx, id, `
		SELECT MAX(revision) FROM revisions WHERE storage_id = ?
	`, id.String())
}

// Revision returns a specific revision.
// Returns ErrNotFound if it does not exist.
func (s *Store) Revision(ctx context.Context, id uuid.UUID, revision int64) (Snapshot, error) {
	return s.readRevision(ctx, id, `
		SELECT revision FROM revisions WHERE storage_id = ? AND revision = ?
	`, id.String(), revision)
}

// AtVersion returns the latest revision saved at or before storage version
// v. Returns ErrNotFound if every revision is newer.
func (s *Store) AtVersion(ctx context.Context, id uuid.UUID, v uint64) (Snapshot, error) {
	// Save never stores a version above MaxInt64.
	limit := int64(math.MaxInt64)
	if v < math.MaxInt64 {
		limit = int64(v)
	}
	return s.readRevision(ctx, id, `
		SELECT MAX(revision) FROM revisions WHERE storage_id = ? AND version <= ?
	`, id.String(), limit)
}

// readRevision resolves a revision number with query, then loads it.
func (s *Store) readRevision(ctx context.Context, id uuid.UUID, query string, args ...any) (Snapshot, error) {
	var rev sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&rev); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("read storage %s: %w", id, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("read storage %s: %w", id, err)
	}
	if !rev.Valid {
		return Snapshot{}, fmt.Errorf("read storage %s: %w", id, ErrNotFound)
	}

	snap := Snapshot{StorageID: id, Revision: rev.Int64}

	var version int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT s.layout, r.version
		FROM revisions r
		JOIN storages s ON s.id = r.storage_id
		WHERE r.storage_id = ? AND r.revision = ?
	`, id.String(), rev.Int64).Scan(&snap.Layout, &version); err != nil {
		return Snapshot{}, fmt.Errorf("read storage %s revision %d: %w", id, rev.Int64, err)
	}
	snap.Version = uint64(version)

	records, err := s.readRecords(ctx, id, rev.Int64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read storage %s revision %d: %w", id, rev.Int64, err)
	}
	snap.Records = records
	return snap, nil
}

func (s *Store) readRecords(ctx context.Context, id uuid.UUID, revision int64) ([]storage.SlotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, type_id, metadata, amount
		FROM slot_records
		WHERE storage_id = ? AND revision = ?
		ORDER BY slot ASC
	`, id.String(), revision)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.SlotRecord
	for rows.Next() {
		var slot int
		var row recordRow
		if err := rows.Scan(&slot, &row.typeID, &row.metadata, &row.amount); err != nil {
			return nil, err
		}
		if slot != len(records) {
			return nil, fmt.Errorf("slot %d missing", len(records))
		}
		rec, err := unmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Revisions lists every revision of a storage, oldest first.
func (s *Store) Revisions(ctx context.Context, id uuid.UUID) ([]RevisionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.revision, r.version, COUNT(sr.type_id)
		FROM revisions r
		LEFT JOIN slot_records sr
			ON sr.storage_id = r.storage_id AND sr.revision = r.revision
		WHERE r.storage_id = ?
		GROUP BY r.revision, r.version
		ORDER BY r.revision ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list revisions of %s: %w", id, err)
	}
	defer rows.Close()

	var infos []RevisionInfo
	for rows.Next() {
		var info RevisionInfo
		var version int64
		if err := rows.Scan(&info.Revision, &version, &info.Occupied); err != nil {
			return nil, fmt.Errorf("list revisions of %s: %w", id, err)
		}
		info.Version = uint64(version)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Storages lists every persisted storage ordered by id.
func (s *Store) Storages(ctx context.Context) ([]StorageInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.layout, s.slot_count, COUNT(r.revision)
		FROM storages s
		LEFT JOIN revisions r ON r.storage_id = s.id
		GROUP BY s.id, s.layout, s.slot_count
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list storages: %w", err)
	}
	defer rows.Close()

	var infos []StorageInfo
	for rows.Next() {
		var info StorageInfo
		var id string
		if err := rows.Scan(&id, &info.Layout, &info.Slots, &info.Revisions); err != nil {
			return nil, fmt.Errorf("list storages: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("list storages: bad id %q: %w", id, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Restore loads the latest revision of st's ID into st with ReadState.
func (s *Store) Restore(ctx context.Context, st *storage.Storage) (Snapshot, error) {
	snap, err := s.Latest(ctx, st.ID())
	if err != nil {
		return Snapshot{}, err
	}
	if err := st.ReadState(snap.Records); err != nil {
		return Snapshot{}, fmt.Errorf("restore storage %s: %w", st.ID(), err)
	}
	return snap, nil
}
