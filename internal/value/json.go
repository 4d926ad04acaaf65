package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeTag marks a timestamp in the document encoding: {"$time": "..."}.
// Record keys starting with '$' are written with one more '$' so they never
// read back as a tag.
const timeTag = "$time"

func escapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return "$" + k
	}
	return k
}

func unescapeKey(k string) (string, bool) {
	if strings.HasPrefix(k, "$$") {
		return k[1:], true
	}
	return k, false
}

// MarshalJSON encodes the record as a JSON object in field order.
// Times become RFC 3339 strings.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, r, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := decodeRecordBytes(data, false)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// MarshalValue encodes any Value as plain JSON.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, orNull(v), false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeJSON decodes a single JSON value. Integer literals become Int, other
// numbers Float, objects ordered Records.
func DecodeJSON(data []byte) (Value, error) {
	return decodeBytes(data, false)
}

// EncodeDocument encodes a record losslessly: timestamps are tagged and
// floats always carry a fraction or exponent, so DecodeDocument restores the
// exact kinds. Used by storage backends.
func EncodeDocument(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, r, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDocument is the inverse of EncodeDocument.
func DecodeDocument(data []byte) (*Record, error) {
	return decodeRecordBytes(data, true)
}

func encodeValue(buf *bytes.Buffer, v Value, typed bool) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Text:
		b, err := json.Marshal(string(val))
		if err != nil {
			return err
		}
		buf.Write(b)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		s, err := encodeFloat(float64(val), typed)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Time:
		ts, _ := json.Marshal(val.Std().Format(time.RFC3339Nano))
		if typed {
			buf.WriteString(`{"` + timeTag + `":`)
			buf.Write(ts)
			buf.WriteByte('}')
		} else {
			buf.Write(ts)
		}
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, elem, typed); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Record:
		buf.WriteByte('{')
		i := 0
		for k, elem := range val.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			name := k
			if typed {
				name = escapeKey(k)
			}
			kb, err := json.Marshal(name)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeValue(buf, elem, typed); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value type: %T", v)
	}
	return nil
}

func encodeFloat(f float64, typed bool) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported float value: %v", f)
	}
	s := formatFloat(f)
	if typed && !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

func decodeBytes(data []byte, typed bool) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, typed)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeRecordBytes(data []byte, typed bool) (*Record, error) {
	v, err := decodeBytes(data, typed)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(*Record)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", KindOf(v))
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder, typed bool) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec, typed)
		case '[':
			return decodeList(dec, typed)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return Text(t), nil
	case json.Number:
		return ParseNumber(t.String())
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeObject(dec *json.Decoder, typed bool) (Value, error) {
	rec := NewRecord()
	escaped := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		if typed {
			var was bool
			key, was = unescapeKey(key)
			escaped = escaped || was
		}
		v, err := decodeValue(dec, typed)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if typed && !escaped && rec.Len() == 1 {
		if tv, ok := rec.Get(timeTag); ok {
			s, isText := tv.(Text)
			if !isText {
				return nil, fmt.Errorf("%s must hold a string", timeTag)
			}
			t, err := ParseTime(string(s))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", timeTag, err)
			}
			return Time(t), nil
		}
	}
	return rec, nil
}

func decodeList(dec *json.Decoder, typed bool) (Value, error) {
	list := List{}
	for dec.More() {
		v, err := decodeValue(dec, typed)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", len(list), err)
		}
		list = append(list, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

// ParseNumber parses a JSON number literal. Literals without a fraction or
// exponent that fit in int64 become Int; everything else becomes Float.
func ParseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}
