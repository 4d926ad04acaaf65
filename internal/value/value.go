package value

import (
	"time"
)

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindList
	KindRecord
)

var kindNames = [...]string{
	KindNull:   "null",
	KindText:   "text",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
	KindList:   "list",
	KindRecord: "record",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsNumber reports whether the kind is Int or Float.
func (k Kind) IsNumber() bool {
	return k == KindInt || k == KindFloat
}

// Value is a sealed interface over the field value kinds.
// The unexported marker method keeps implementations inside this package so
// type switches over Value can be exhaustive.
type Value interface {
	Kind() Kind
	value()
}

// Null is the explicit null value. Absent fields read as Null.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// Text is a string value.
type Text string

func (Text) Kind() Kind { return KindText }
func (Text) value()     {}

// Int is an integral number.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float is a non-integral (or explicitly floating) number.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Time is a timestamp value.
type Time time.Time

func (Time) Kind() Kind { return KindTime }
func (Time) value()     {}

// Std returns the underlying time.Time.
func (t Time) Std() time.Time { return time.Time(t) }

// List is an ordered sequence of values.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// NewTime wraps a time.Time.
func NewTime(t time.Time) Time {
	return Time(t)
}

// NewList creates a List from values. Nil elements become Null.
func NewList(vals ...Value) List {
	l := make(List, len(vals))
	for i, v := range vals {
		l[i] = orNull(v)
	}
	return l
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// KindOf returns the kind of v, treating nil as KindNull.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Clone returns a deep copy of v. Scalars are immutable and returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case List:
		if val == nil {
			return List(nil)
		}
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case *Record:
		return val.Clone()
	default:
		return v
	}
}

func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}
