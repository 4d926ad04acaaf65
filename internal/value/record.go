package value

import (
	"iter"
	"slices"
)

// Record is an ordered mapping from field name to Value.
//
// Field order is insertion order. Setting an existing field keeps its
// position. A nil *Record behaves as an empty record for reads.
type Record struct {
	keys   []string
	fields map[string]Value
}

func (*Record) Kind() Kind { return KindRecord }
func (*Record) value()     {}

// Field is a name/value pair for typed Record construction.
type Field struct {
	Name  string
	Value Value
}

// F is a shorthand for Field.
// Example: RecordOf(F("name", Text("Alice")), F("age", Int(30)))
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// RecordOf creates a record from fields in the given order.
func RecordOf(fields ...Field) *Record {
	r := &Record{
		keys:   make([]string, 0, len(fields)),
		fields: make(map[string]Value, len(fields)),
	}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Get returns the value of a field and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.fields[name]
	return v, ok
}

// Lookup returns the value of a field, or Null when the field is absent.
func (r *Record) Lookup(name string) Value {
	if v, ok := r.Get(name); ok {
		return v
	}
	return Null{}
}

// Has reports whether the field is present (a present Null counts).
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Set assigns a field. A nil value is stored as Null.
func (r *Record) Set(name string, v Value) {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, exists := r.fields[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.fields[name] = orNull(v)
}

// Delete removes a field and reports whether it was present.
func (r *Record) Delete(name string) bool {
	if r == nil {
		return false
	}
	if _, ok := r.fields[name]; !ok {
		return false
	}
	delete(r.fields, name)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == name })
	return true
}

// Keys returns the field names in order. The slice is a copy.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.keys)
}

// All iterates fields in order.
func (r *Record) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if r == nil {
			return
		}
		for _, k := range r.keys {
			if !yield(k, r.fields[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy. Cloning a nil record yields an empty record.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   make([]string, 0, r.Len()),
		fields: make(map[string]Value, r.Len()),
	}
	for k, v := range r.All() {
		out.keys = append(out.keys, k)
		out.fields[k] = Clone(v)
	}
	return out
}

// Merge copies every field of src onto r (shallow merge at the top level).
// Existing fields keep their position; new fields are appended in src order.
func (r *Record) Merge(src *Record) {
	for k, v := range src.All() {
		r.Set(k, Clone(v))
	}
}

// Project returns a new record holding only the named fields that are
// present, in the order they are requested. Absent names are skipped.
func (r *Record) Project(names []string) *Record {
	out := NewRecord()
	for _, name := range names {
		if v, ok := r.Get(name); ok && !out.Has(name) {
			out.Set(name, Clone(v))
		}
	}
	return out
}
