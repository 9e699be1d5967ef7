package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface over the constrained JSON value types that may
// participate in content-addressed hashing. Only Text, Int, Bool, Arr and Obj
// implement it. There is deliberately no float type: floats break
// determinism, and every monetary magnitude in this system is carried as a
// decimal string.
type Value interface {
	canonicalValue() // sealed
}

// Text is a JSON string value.
type Text string

func (Text) canonicalValue() {}

// Int is a JSON integer value. Always int64, never float64.
type Int int64

func (Int) canonicalValue() {}

// Bool is a JSON boolean value.
type Bool bool

func (Bool) canonicalValue() {}

// Arr is a JSON array of Values.
type Arr []Value

func (Arr) canonicalValue() {}

// Obj is a JSON object. Use SortedKeys for deterministic iteration.
type Obj map[string]Value

func (Obj) canonicalValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for characters
// outside the BMP, so we must not use it here.
func (o Obj) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as RFC 8785
// requires. utf16.Encode handles surrogate pairs correctly.
func compareKeysRFC8785(a, b string) int {
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

// FromGo converts an arbitrary JSON-serializable Go value (typically a
// domain struct) into a constrained Value tree.
//
// The conversion round-trips through encoding/json so that struct tags,
// including omitempty, decide which fields appear. Absent optional fields
// are therefore omitted from the canonical form rather than serialized as
// null, which keeps hashes stable across producers.
//
// Nulls and floats are rejected: a null in the tree means a field escaped
// its omitempty tag, and a float means a magnitude was not carried as a
// decimal string. Both are bugs in the caller, not data.
func FromGo(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal intermediate: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: decode intermediate: %w", err)
	}

	return fromDecoded(tree)
}

// fromDecoded recursively converts a decoded JSON tree to a Value.
func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical form: omit absent fields instead")
	case bool:
		return Bool(val), nil
	case string:
		return Text(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in canonical form: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Arr, len(val))
		for i, elem := range val {
			cv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return arr, nil
	case map[string]any:
		obj := make(Obj, len(val))
		for k, elem := range val {
			cv, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type in canonical form: %T", v)
	}
}
