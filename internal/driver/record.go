package driver

import (
	"time"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

// IDOf returns the record's id field, or value.Null when absent.
func IDOf(rec *value.Record) value.Value {
	return rec.Lookup(FieldID)
}

// CheckID validates an identifier: non-empty text or a number.
func CheckID(id value.Value) error {
	switch v := id.(type) {
	case value.Text:
		if v == "" {
			return errdefs.InvalidRequest("id must not be empty")
		}
		return nil
	case value.Int, value.Float:
		return nil
	}
	return errdefs.InvalidRequest("id must be text or a number, got %s", value.KindOf(id))
}

// PrepareCreate builds the record to store for a create and returns it with
// its table key.
//
// A missing or null id is generated and placed first. Missing or null
// created_at and updated_at are stamped with now; caller-supplied values
// are kept. data is never modified.
func PrepareCreate(data *value.Record, ids IDGenerator, now time.Time) (*value.Record, string, error) {
	rec := data.Clone()

	id := IDOf(rec)
	if value.IsNull(id) {
		id = value.Text(ids.Generate())
		if rec.Has(FieldID) {
			rec.Set(FieldID, id)
		} else {
			withID := value.RecordOf(value.F(FieldID, id))
			withID.Merge(rec)
			rec = withID
		}
	}
	if err := CheckID(id); err != nil {
		return nil, "", err
	}

	stamp := value.NewTime(now)
	if value.IsNull(rec.Lookup(FieldCreatedAt)) {
		rec.Set(FieldCreatedAt, stamp)
	}
	if value.IsNull(rec.Lookup(FieldUpdatedAt)) {
		rec.Set(FieldUpdatedAt, stamp)
	}
	return rec, value.IDKey(id), nil
}

// ApplyUpdate returns existing with data shallow-merged over it.
//
// id and created_at are restored from existing whatever data holds, and
// updated_at is set to now, or to created_at if that is later.
// Neither argument is modified.
func ApplyUpdate(existing, data *value.Record, now time.Time) *value.Record {
	out := existing.Clone()
	out.Merge(data)

	out.Set(FieldID, value.Clone(IDOf(existing)))
	if created, ok := existing.Get(FieldCreatedAt); ok {
		out.Set(FieldCreatedAt, value.Clone(created))
		if t, isTime := created.(value.Time); isTime && now.Before(t.Std()) {
			now = t.Std()
		}
	} else {
		out.Delete(FieldCreatedAt)
	}
	out.Set(FieldUpdatedAt, value.NewTime(now))
	return out
}
