package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockpile/internal/resource"
)

type fixture struct {
	reg         *resource.Registry
	a           *resource.Type
	b           *resource.Type
	pearl       *resource.Type
	emptyBucket *resource.Type
	waterBucket *resource.Type
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg := resource.NewRegistry()
	f := fixture{
		reg:   reg,
		a:     reg.MustRegister("type_a", 64),
		b:     reg.MustRegister("type_b", 64),
		pearl: reg.MustRegister("pearl", 16),
	}
	f.emptyBucket = reg.MustRegister("bucket", 16)
	f.waterBucket = &resource.Type{ID: "water_bucket", MaxAmount: 1, Remainder: f.emptyBucket}
	require.NoError(t, reg.Register(f.waterBucket))
	return f
}

var (
	inputGroup  = GroupType{ID: "input", Name: "Input", Colour: 0x3366ff, Policy: PolicyInput}
	outputGroup = GroupType{ID: "output", Name: "Output", Colour: 0xff6633, Policy: PolicyOutput}
	chargeGroup = GroupType{ID: "charge", Name: "Charge", Colour: 0xffcc00, Policy: PolicyTransfer}
)

var testStorageID = uuid.MustParse("01900000-0000-7000-8000-000000000001")

// machine builds input(2) + output(1) + charge(1), all capacity 64.
func (f fixture) machine(t *testing.T, opts ...SlotOption) *Storage {
	t.Helper()
	s, err := NewBuilder(f.reg, WithID(testStorageID)).
		AddSlots(inputGroup, 2, 64, opts...).
		AddSlots(outputGroup, 1, 64).
		AddSlots(chargeGroup, 1, 64).
		Build()
	require.NoError(t, err)
	return s
}

func requireContract(t *testing.T, code ContractErrorCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		require.True(t, IsContractError(r), "unexpected panic value %v", r)
		require.Equal(t, code, r.(*ContractError).Code)
	}()
	fn()
}

// slotState snapshot for comparisons in tests.
func stateOf(s *Slot) slotState {
	return s.CaptureState().(slotState)
}
