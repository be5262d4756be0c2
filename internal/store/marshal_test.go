package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/storage"
)

func TestVersionColumn(t *testing.T) {
	tests := []struct {
		version uint64
		want    int64
		wantErr bool
	}{
		{0, 0, false},
		{42, 42, false},
		{math.MaxInt64, math.MaxInt64, false},
		{math.MaxInt64 + 1, 0, true},
		{math.MaxUint64, 0, true},
	}

	for _, tt := range tests {
		got, err := versionColumn(tt.version)
		if tt.wantErr {
			require.Error(t, err, "version %d", tt.version)
			assert.Contains(t, err.Error(), "exceeds storable range")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestMarshalRecordAmountRange(t *testing.T) {
	_, err := marshalRecord(storage.SlotRecord{TypeID: "ingot", Amount: math.MaxInt64 + 1})
	require.Error(t, err)

	row, err := marshalRecord(storage.SlotRecord{TypeID: "ingot", Amount: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.amount)
	assert.Equal(t, "{}", row.metadata)
}
