package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

var testStorageID = uuid.MustParse("01900000-0000-7000-8000-0000000000aa")

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type testTypes struct {
	reg   *resource.Registry
	ingot *resource.Type
	sword *resource.Type
}

func newTestTypes() testTypes {
	reg := resource.NewRegistry()
	return testTypes{
		reg:   reg,
		ingot: reg.MustRegister("iron_ingot", 64),
		sword: reg.MustRegister("mod:sword", 1),
	}
}

// createTestStorage builds a three-slot storage with the given ID.
func createTestStorage(t *testing.T, types testTypes, id uuid.UUID) *storage.Storage {
	t.Helper()
	s, err := storage.NewBuilder(types.reg, storage.WithID(id)).
		AddSlots(storage.GroupType{ID: "main", Policy: storage.PolicyStorage}, 3, 64).
		Build()
	require.NoError(t, err)
	return s
}
