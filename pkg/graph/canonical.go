package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// CanonicalJSON encodes a value as deterministic JSON: object keys are
// sorted, and all numeric values are normalized to a minimal form so that
// semantically equal inputs encode identically regardless of their source
// representation (Go structs, YAML mappings, already-decoded JSON).
//
// Identifier stability depends entirely on this function, not on the hash
// applied afterwards.
func CanonicalJSON(v interface{}) ([]byte, error) {
	// Round-trip through encoding/json first so arbitrary Go values
	// (structs, typed maps) collapse to the generic JSON data model.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical encoding failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical decoding failed: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCanonical writes one value in canonical form.
func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")

	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(enc)

	case json.Number:
		buf.WriteString(normalizeNumber(val))

	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	default:
		return fmt.Errorf("canonical encoding: unsupported type %T", v)
	}

	return nil
}

// normalizeNumber renders a JSON number in minimal form. Integral values
// lose any fractional or exponent notation ("2.0" and "2e0" both become
// "2"), so parameter values hash the same however the source spelled them.
func normalizeNumber(n json.Number) string {
	s := n.String()

	// A plain integer literal is already minimal; keep it verbatim so
	// integers beyond float64 precision survive untouched.
	if isPlainInteger(s) {
		return s
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isPlainInteger(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
