// Package txn implements nested rollback scopes for in-memory state.
//
// A Transaction is a stack of scopes. Code that mutates state first calls
// Track on the innermost open scope, which records the participant's
// pre-image the first time it is touched in that scope. Abort restores every
// recorded pre-image. Commit folds the scope's pre-images into its parent,
// keeping the parent's own pre-image where one exists, or discards them if
// the scope is the root.
//
// Usage:
//
//	tx := txn.Open(nil)
//	defer tx.Close()
//	moved := slot.Insert(tx, iron, nil, 10)
//	if moved == 10 {
//	    tx.Commit()
//	}
//
// Close aborts a scope that is still open and is a no-op otherwise, so it is
// always safe to defer.
//
// Scheduling model:
// Scopes are not safe for concurrent use. The package assumes one logical
// execution context drives every storage it touches, in the same way a
// simulation tick does. Misuse (touching a closed scope, closing a parent
// before its child, committing twice) panics with a *MisuseError.
package txn
