package txn

// Do runs fn inside tx, which must be open and innermost. When tx is nil,
// fn runs in a fresh root scope that is committed when fn returns, or
// aborted if fn panics.
func Do[T any](tx *Transaction, fn func(*Transaction) T) T {
	if tx != nil {
		tx.Check()
		return fn(tx)
	}
	root := Open(nil)
	defer root.Close()
	result := fn(root)
	root.Commit()
	return result
}

// Simulate runs fn in a scope nested in parent (or a fresh root when parent
// is nil) and always aborts it, returning what fn reported.
func Simulate[T any](parent *Transaction, fn func(*Transaction) T) T {
	tx := Open(parent)
	tx.simulation = true
	defer tx.Abort()
	return fn(tx)
}
