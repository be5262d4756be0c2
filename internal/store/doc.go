// Package store saves storage snapshots to SQLite and reads them back.
//
// Storages are keyed by UUID. Save appends a revision recording the storage
// version at that moment and one row per slot. Slot counts are fixed per
// storage, so every revision of a storage has the same number of rows.
// Empty slots are rows with a NULL type id and zero amount.
//
// Metadata is written as canonical JSON (resource.MarshalCanonical), so two
// equal records always produce identical rows.
//
// Reads order by revision and slot.
package store
