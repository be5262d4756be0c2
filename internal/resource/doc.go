// Package resource defines what a storage slot can hold: resource types,
// the metadata records attached to individual stacks, and the filters that
// decide whether a (type, metadata) pair is admissible.
//
// This package has no internal dependencies. Every other internal package
// imports resource; resource imports nothing internal.
//
// Identity rules:
//   - A *Type is compared by pointer. Types are interned by a Registry and
//     never copied.
//   - Metadata is an immutable record of string keys to Values. A nil record
//     and an empty record are the same thing ("no metadata"), and two stacks
//     are the same resource iff their types are identical and their metadata
//     records are Equal under that policy.
//   - Metadata values are restricted to strings, int64, bools, lists and nested
//     records. There are no floats and no nulls, so canonical encoding and
//     fingerprints are deterministic.
package resource
