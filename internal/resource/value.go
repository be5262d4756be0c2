package resource

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the values a metadata record may carry.
// Only String, Int, Bool, List and Metadata implement it.
type Value interface {
	metadataValue()
}

// String is a string metadata value.
type String string

func (String) metadataValue() {}

// Int is an integer metadata value. Floats are not representable.
type Int int64

func (Int) metadataValue() {}

// Bool is a boolean metadata value.
type Bool bool

func (Bool) metadataValue() {}

// List is an ordered list of metadata values.
type List []Value

func (List) metadataValue() {}

// Metadata is a record attached to a resource stack.
//
// Records are treated as immutable once attached to a slot; callers that
// want to change metadata build a new record. A nil Metadata and an empty one
// both mean "no metadata".
type Metadata map[string]Value

func (Metadata) metadataValue() {}

// IsEmpty reports whether the record carries no fields.
func (m Metadata) IsEmpty() bool {
	return len(m) == 0
}

// Strip returns nil for an empty record and the record itself otherwise.
// Slots store stripped records so that "no metadata" has one representation.
func Strip(m Metadata) Metadata {
	if len(m) == 0 {
		return nil
	}
	return m
}

// SortedKeys returns keys in UTF-16 code unit order, the order used by the
// canonical encoding.
func (m Metadata) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 orders strings by UTF-16 code units rather than UTF-8
// bytes. The two orders differ for characters outside the BMP.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// Equal reports whether two metadata records are equal under the
// empty-is-absent policy: nil and {} are equal to each other and to nothing
// else.
func Equal(a, b Metadata) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	return valuesEqual(a, b)
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Metadata:
		bv, ok := b.(Metadata)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !valuesEqual(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
