package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Canonical produces RFC 8785 style canonical JSON: object keys sorted by
// UTF-16 code units, no HTML escaping, NFC-normalized strings, integral
// floats written as integers. Output is stable across runs and field orders,
// which makes it suitable for golden snapshots.
func Canonical(v Value) ([]byte, error) {
	return encodeCanonical(v, true)
}

func encodeCanonical(v Value, normalize bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, orNull(v), normalize); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value, normalize bool) error {
	switch val := v.(type) {
	case Null:
		buf.WriteString("null")
	case Text:
		return writeCanonicalString(buf, string(val), normalize)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		if _, err := encodeFloat(float64(val), false); err != nil {
			return err
		}
		buf.WriteString(numberKey(val))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Time:
		return writeCanonicalString(buf, val.Std().UTC().Format(time.RFC3339Nano), false)
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, orNull(elem), normalize); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Record:
		keys := val.Keys()
		slices.SortFunc(keys, compareKeysUTF16)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k, normalize); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val.Lookup(k), normalize); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string, normalize bool) error {
	if normalize {
		s = norm.NFC.String(s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// json.Encoder appends a newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// compareKeysUTF16 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string order is UTF-8 byte order, which differs for
// characters outside the BMP.
func compareKeysUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
