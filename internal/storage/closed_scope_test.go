package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/txn"
)

func requireMisuse(t *testing.T, code txn.MisuseCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		require.True(t, txn.IsMisuseError(r), "unexpected panic value %v", r)
		require.Equal(t, code, r.(*txn.MisuseError).Code)
	}()
	fn()
}

// Calls that would move nothing must still reject a closed scope.
func TestClosedScopeRejectedWhenNothingChanges(t *testing.T) {
	f := newFixture(t)
	st := f.machine(t, WithFilter(resource.Equals(f.a)))
	st.InsertAt(nil, 0, f.a, nil, 5)
	held := st.Slot(0)
	empty := st.Slot(1)
	output := st.Slot(2)

	committed := txn.Open(nil)
	committed.Commit()

	cases := []struct {
		name string
		fn   func()
	}{
		{"insert rejected by filter", func() { empty.Insert(committed, f.b, nil, 1) }},
		{"insert zero", func() { empty.Insert(committed, f.a, nil, 0) }},
		{"insert as forbidden actor", func() { output.InsertAs(committed, ActorExternal, f.a, nil, 1) }},
		{"extract from empty slot", func() { empty.Extract(committed, 1) }},
		{"extract wrong type", func() { held.ExtractType(committed, f.b, 1) }},
		{"extract as forbidden actor", func() { held.ExtractAs(committed, ActorExternal, f.a, nil, 1) }},
		{"consume empty slot", func() { empty.Consume(committed, 1) }},
		{"set unchanged", func() { held.Set(committed, f.a, nil, 5) }},
		{"storage insert zero", func() { st.Insert(committed, f.a, nil, 0) }},
		{"storage extract missing", func() { st.ExtractExact(committed, f.b, nil, 1) }},
		{"group insert zero", func() { st.Group(0).Insert(committed, f.a, nil, 0) }},
		{"move nothing", func() { Move(committed, held, empty, f.a, nil, 0) }},
		{"move all nothing", func() { MoveAll(committed, nil, st.Group(1), st, 0) }},
		{"read delta", func() { _ = NewSyncTracker(st).ReadDelta(committed, nil) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := st.WriteState()
			version := st.Version()

			requireMisuse(t, txn.ErrCodeClosedScope, tc.fn)

			assert.Equal(t, before, st.WriteState())
			assert.Equal(t, version, st.Version())
		})
	}
}

func TestParentScopeRejectedWhileChildOpen(t *testing.T) {
	f := newFixture(t)
	st := f.machine(t)

	root := txn.Open(nil)
	defer root.Close()
	child := txn.Open(root)
	defer child.Close()

	requireMisuse(t, txn.ErrCodeNotInnermost, func() { st.Slot(1).Extract(root, 1) })
	requireMisuse(t, txn.ErrCodeNotInnermost, func() { st.Insert(root, f.a, nil, 0) })
	assert.Equal(t, uint64(3), st.Insert(child, f.a, nil, 3))
}
