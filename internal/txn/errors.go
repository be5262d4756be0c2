package txn

import (
	"errors"
	"fmt"
)

// MisuseError is the panic value for transaction contract violations.
// These are programming errors and are never returned.
type MisuseError struct {
	// Code identifies the violation.
	Code MisuseCode

	// Message is a human-readable description.
	Message string

	// Depth is the nesting depth of the offending scope.
	Depth int
}

// MisuseCode categorizes transaction misuse.
type MisuseCode string

const (
	// ErrCodeClosedScope indicates use of a committed or aborted scope.
	ErrCodeClosedScope MisuseCode = "CLOSED_SCOPE"

	// ErrCodeNotInnermost indicates use of a scope that has an open child.
	ErrCodeNotInnermost MisuseCode = "NOT_INNERMOST"

	// ErrCodeNilParticipant indicates Track was called with nil.
	ErrCodeNilParticipant MisuseCode = "NIL_PARTICIPANT"
)

// Error implements the error interface.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: %s (depth=%d)", e.Code, e.Message, e.Depth)
}

// IsMisuseError reports whether v, typically a recovered panic value, is a
// *MisuseError. Wrapped errors are unwrapped with errors.As.
func IsMisuseError(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var me *MisuseError
	return errors.As(err, &me)
}

func misuse(code MisuseCode, depth int, format string, args ...any) *MisuseError {
	return &MisuseError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Depth:   depth,
	}
}
