package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/tabula/internal/value"
)

// checkExpect compares a step's outcome with its expect clause and returns
// one message per mismatch.
func checkExpect(event TraceEvent, step *Step) []string {
	exp := step.Expect
	failed := event.Outcome != OutcomeOK && event.Outcome != OutcomeAbsent

	if exp == nil {
		if failed {
			return []string{fmt.Sprintf("unexpected error %s", event.Outcome)}
		}
		return nil
	}

	if exp.Error != "" {
		if event.Outcome != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, event.Outcome)}
		}
		return nil
	}
	if failed {
		return []string{fmt.Sprintf("unexpected error %s", event.Outcome)}
	}

	var errs []string
	if exp.Absent && event.Outcome != OutcomeAbsent {
		errs = append(errs, fmt.Sprintf("expected no record, got %s", show(event.Result)))
	}
	if exp.IDs != nil {
		if msg := matchIDs(event.Result, exp.IDs); msg != "" {
			errs = append(errs, msg)
		}
	}
	if exp.Count != nil {
		if msg := matchCount(event.Result, *exp.Count); msg != "" {
			errs = append(errs, msg)
		}
	}
	if exp.Values.Kind != 0 {
		want, err := nodeValue(&exp.Values)
		if err != nil {
			errs = append(errs, fmt.Sprintf("expect.values: %v", err))
		} else if !value.Equal(want, orNull(event.Result)) {
			errs = append(errs, fmt.Sprintf("expected values %s, got %s", show(want), show(event.Result)))
		}
	}
	if exp.Removed != nil {
		if got, ok := event.Result.(value.Bool); !ok || bool(got) != *exp.Removed {
			errs = append(errs, fmt.Sprintf("expected removed=%t, got %s", *exp.Removed, show(event.Result)))
		}
	}
	if exp.Record.Kind != 0 {
		want, err := nodeRecord(&exp.Record)
		if err != nil {
			errs = append(errs, fmt.Sprintf("expect.record: %v", err))
		} else {
			errs = append(errs, matchRecord(event.Result, want)...)
		}
	}
	for _, field := range exp.Present {
		rec, _ := event.Result.(*value.Record)
		if value.IsNull(rec.Lookup(field)) {
			errs = append(errs, fmt.Sprintf("expected field %q to be present and non-null", field))
		}
	}
	return errs
}

// matchIDs compares the ids of a find result, in order. Ids are compared
// by text form, the same way drivers address records.
func matchIDs(result value.Value, want []any) string {
	list, ok := result.(value.List)
	if !ok {
		return fmt.Sprintf("expected a record list, got %s", show(result))
	}

	wantKeys := make([]string, len(want))
	for i, w := range want {
		v, err := value.FromAny(w)
		if err != nil {
			return fmt.Sprintf("expect.ids[%d]: %v", i, err)
		}
		wantKeys[i] = value.IDKey(v)
	}

	gotKeys := make([]string, len(list))
	for i, item := range list {
		rec, _ := item.(*value.Record)
		gotKeys[i] = value.IDKey(rec.Lookup("id"))
	}

	if !slices.Equal(wantKeys, gotKeys) {
		return fmt.Sprintf("expected ids %v, got %v", wantKeys, gotKeys)
	}
	return ""
}

// matchCount accepts a count result or the length of a find result.
func matchCount(result value.Value, want int) string {
	var got int
	switch v := result.(type) {
	case value.Int:
		got = int(v)
	case value.List:
		got = len(v)
	default:
		return fmt.Sprintf("expected count %d, got %s", want, show(result))
	}
	if got != want {
		return fmt.Sprintf("expected count %d, got %d", want, got)
	}
	return ""
}

// matchRecord checks subset semantics: every expected field must be present
// in the actual record with an equal value. Extra actual fields are ignored.
func matchRecord(result value.Value, want *value.Record) []string {
	rec, ok := result.(*value.Record)
	if !ok {
		return []string{fmt.Sprintf("expected a record, got %s", show(result))}
	}
	var errs []string
	for name, w := range want.All() {
		got, present := rec.Get(name)
		if !present {
			errs = append(errs, fmt.Sprintf("field %q: missing", name))
			continue
		}
		if !sameValue(w, got) {
			errs = append(errs, fmt.Sprintf("field %q: expected %s, got %s", name, show(w), show(got)))
		}
	}
	return errs
}

// sameValue is value.Equal, except that an expected string also matches a
// timestamp it parses to.
func sameValue(want, got value.Value) bool {
	if value.Equal(want, got) {
		return true
	}
	if value.KindOf(want) == value.KindText && value.KindOf(got) == value.KindTime {
		c, err := value.Compare(got, want)
		return err == nil && c == 0
	}
	return false
}

func show(v value.Value) string {
	if v == nil {
		return "nothing"
	}
	out, err := value.MarshalValue(v)
	if err != nil {
		return value.Stringify(v)
	}
	return string(out)
}

func orNull(v value.Value) value.Value {
	if v == nil {
		return value.Null{}
	}
	return v
}
