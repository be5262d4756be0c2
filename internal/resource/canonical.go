package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes a metadata record as canonical JSON.
//
// Canonical form:
//   - keys sorted by UTF-16 code units at every level
//   - strings NFC-normalized before encoding
//   - minimal escaping: only '"', '\\' and control characters are escaped
//   - no insignificant whitespace
//
// A nil or empty record encodes as "{}".
func MarshalCanonical(m Metadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case String:
		return writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("list index %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Metadata:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case nil:
		return fmt.Errorf("nil metadata value")
	default:
		return fmt.Errorf("unsupported metadata value type: %T", v)
	}
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("invalid UTF-8 in string")
	}
	s = norm.NFC.String(s)

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

// UnmarshalMetadata decodes a JSON object into a metadata record.
// Floats and nulls are rejected. "{}" decodes to nil.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("metadata must be a JSON object, got %T", raw)
	}
	m, err := FromMap(obj)
	if err != nil {
		return nil, err
	}
	return Strip(m), nil
}

// FromMap converts a generic map, as produced by JSON, YAML or CUE decoding,
// into a metadata record.
func FromMap(obj map[string]any) (Metadata, error) {
	m := make(Metadata, len(obj))
	for k, v := range obj {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		m[k] = val
	}
	return m, nil
}

// FromAny converts a decoded Go value into a metadata Value.
// Integral floats are accepted since some decoders produce them for whole
// numbers; anything with a fractional part is rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not supported")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(int64(val)), nil
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not supported: %s", val)
		}
		return Int(i), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("floats are not supported: %v", val)
		}
		return Int(int64(val)), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = converted
		}
		return list, nil
	case map[string]any:
		return FromMap(val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MarshalJSON encodes m canonically.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(m)
}

// UnmarshalJSON decodes an object with the same rules as UnmarshalMetadata.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	decoded, err := UnmarshalMetadata(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}
