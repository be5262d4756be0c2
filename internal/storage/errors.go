package storage

import (
	"errors"
	"fmt"
)

// ContractError is the panic value for storage precondition violations:
// out-of-range indices, bulk serialization during an open transaction,
// and writes that would break a slot invariant.
//
// Capacity and admission shortfalls are never ContractErrors; they are
// reported as a zero amount or false.
type ContractError struct {
	// Code identifies the violation.
	Code ContractErrorCode

	// Message is a human-readable description.
	Message string

	// Slot is the offending slot index, or -1.
	Slot int
}

// ContractErrorCode categorizes contract violations.
type ContractErrorCode string

const (
	// ErrCodeSlotIndexOutOfRange indicates an index outside 0..Size().
	ErrCodeSlotIndexOutOfRange ContractErrorCode = "SLOT_INDEX_OUT_OF_RANGE"

	// ErrCodeGroupIndexOutOfRange indicates a group index outside 0..len(Groups()).
	ErrCodeGroupIndexOutOfRange ContractErrorCode = "GROUP_INDEX_OUT_OF_RANGE"

	// ErrCodeTransactionOpen indicates bulk state access while a transaction
	// that touched the storage is still open.
	ErrCodeTransactionOpen ContractErrorCode = "TRANSACTION_OPEN"

	// ErrCodeInvalidState indicates a write that would break a slot invariant.
	ErrCodeInvalidState ContractErrorCode = "INVALID_STATE"

	// ErrCodeSlotOwned indicates a slot or group being attached to a second owner.
	ErrCodeSlotOwned ContractErrorCode = "SLOT_OWNED"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	if e.Slot >= 0 {
		return fmt.Sprintf("%s: %s (slot=%d)", e.Code, e.Message, e.Slot)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractError reports whether v, typically a recovered panic value, is
// a *ContractError.
func IsContractError(v any) bool {
	return contractCode(v) != ""
}

// IsTransactionOpenError reports whether v is a *ContractError with
// ErrCodeTransactionOpen.
func IsTransactionOpenError(v any) bool {
	return contractCode(v) == ErrCodeTransactionOpen
}

func contractCode(v any) ContractErrorCode {
	err, ok := v.(error)
	if !ok {
		return ""
	}
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func contractViolation(code ContractErrorCode, slot int, format string, args ...any) *ContractError {
	return &ContractError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Slot:    slot,
	}
}
