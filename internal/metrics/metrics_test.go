package metrics

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
	"github.com/roach88/stockpile/internal/txn"
)

var testID = uuid.MustParse("01900000-0000-7000-8000-0000000000cc")

func newTestStorage(t *testing.T) (*storage.Storage, *resource.Type) {
	t.Helper()
	reg := resource.NewRegistry()
	ore := reg.MustRegister("iron_ore", 64)
	s, err := storage.NewBuilder(reg, storage.WithID(testID)).
		AddSlots(storage.GroupType{ID: "main"}, 2, 64).
		Build()
	require.NoError(t, err)
	return s, ore
}

func TestRecorderCountsBatches(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())
	s, ore := newTestStorage(t)
	rec.Attach(s, "chest")

	s.Insert(nil, ore, nil, 10)
	s.Insert(nil, ore, nil, 100)

	tx := txn.Open(nil)
	s.Insert(tx, ore, nil, 1)
	tx.Abort()

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.committed.WithLabelValues("chest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.aborted.WithLabelValues("chest")))
	assert.Equal(t, float64(s.Version()), testutil.ToFloat64(rec.version.WithLabelValues("chest", testID.String())))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.slots.WithLabelValues("chest", testID.String())))
}

func TestRecorderIgnoresSimulations(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())
	s, ore := newTestStorage(t)
	rec.Attach(s, "chest")

	assert.Equal(t, uint64(10), s.TryInsertAs(nil, storage.ActorMachine, ore, nil, 10))
	s.Insert(nil, ore, nil, 10)
	assert.Equal(t, uint64(10), s.TryExtractAs(nil, storage.ActorMachine, ore, nil, 10))

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.committed.WithLabelValues("chest")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.aborted.WithLabelValues("chest")))
}

func TestRecorderIgnoresNetZeroCommit(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())
	s, _ := newTestStorage(t)
	rec.Attach(s, "chest")

	// no storage touched, nothing reported
	txn.Do(nil, func(tx *txn.Transaction) struct{} { return struct{}{} })

	assert.Equal(t, 0.0, testutil.ToFloat64(rec.committed.WithLabelValues("chest")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.version.WithLabelValues("chest", testID.String())))
}

func TestRecorderDetach(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)
	s, ore := newTestStorage(t)

	rec.Attach(s, "chest")
	assert.Equal(t, 1, testutil.CollectAndCount(rec.version))

	rec.Detach(s, "chest")
	assert.Equal(t, 0, testutil.CollectAndCount(rec.version))

	s.Insert(nil, ore, nil, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.committed.WithLabelValues("chest")))
}

func TestRecorderRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)

	assert.Panics(t, func() { NewRecorder(reg) })
}
