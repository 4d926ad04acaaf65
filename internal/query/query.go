// Package query runs the read pipeline shared by every driver:
//
//	filter → sort → skip/limit → project
//
// Drivers supply the table's records in insertion order; Run returns fresh
// copies and never aliases its input.
package query

import (
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/value"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota + 1
	Desc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection parses "asc"/"desc" (any case). An empty string is Asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	}
	return 0, errdefs.InvalidRequest("unsupported sort direction %q", s)
}

// SortKey is one (field, direction) pair. Earlier keys are more significant.
type SortKey struct {
	Field     string
	Direction Direction
}

// By builds a SortKey.
func By(field string, dir Direction) SortKey {
	return SortKey{Field: field, Direction: dir}
}

// Query is the read request: every part is optional.
//
// Limit is a pointer because a limit of zero is meaningful (empty result).
type Query struct {
	Filter filter.Expression
	Sort   []SortKey
	Skip   int
	Limit  *int
	Fields []string
}

// WithLimit returns a copy of q with Limit set.
func (q Query) WithLimit(n int) Query {
	q.Limit = &n
	return q
}

// Validate checks the parts of the query that do not depend on data.
func (q *Query) Validate() error {
	if q == nil {
		return nil
	}
	if err := filter.Validate(q.Filter); err != nil {
		return err
	}
	for _, key := range q.Sort {
		if key.Field == "" {
			return errdefs.InvalidRequest("sort key has an empty field name")
		}
		if key.Direction != Asc && key.Direction != Desc {
			return errdefs.InvalidRequest("unsupported sort direction %s for field %q", key.Direction, key.Field)
		}
	}
	if q.Skip < 0 {
		return errdefs.InvalidRequest("skip must not be negative, got %d", q.Skip)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return errdefs.InvalidRequest("limit must not be negative, got %d", *q.Limit)
	}
	return nil
}

// Run executes q over records (in table order) and returns projected copies.
// A nil query returns copies of every record.
func Run(records []*value.Record, q *Query) ([]*value.Record, error) {
	if q == nil {
		q = &Query{}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	matched, err := Select(records, q.Filter)
	if err != nil {
		return nil, err
	}

	sorted := Sort(matched, q.Sort)
	page := Paginate(sorted, q.Skip, q.Limit)

	out := make([]*value.Record, len(page))
	for i, rec := range page {
		if len(q.Fields) > 0 {
			out[i] = rec.Project(q.Fields)
		} else {
			out[i] = rec.Clone()
		}
	}
	return out, nil
}

// Select returns the records matching expr, preserving order. The returned
// slice shares record pointers with the input.
func Select(records []*value.Record, expr filter.Expression) ([]*value.Record, error) {
	if len(expr) == 0 {
		return append([]*value.Record(nil), records...), nil
	}
	matched := make([]*value.Record, 0, len(records))
	for _, rec := range records {
		ok, err := filter.Evaluate(expr, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// Count returns how many records match expr.
func Count(records []*value.Record, expr filter.Expression) (int, error) {
	if err := filter.Validate(expr); err != nil {
		return 0, err
	}
	if len(expr) == 0 {
		return len(records), nil
	}
	n := 0
	for _, rec := range records {
		ok, err := filter.Evaluate(expr, rec)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// Distinct collects the non-null values of field across matching records,
// first occurrence first, without duplicates.
func Distinct(records []*value.Record, field string, expr filter.Expression) ([]value.Value, error) {
	if err := filter.Validate(expr); err != nil {
		return nil, err
	}
	matched, err := Select(records, expr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []value.Value{}
	for _, rec := range matched {
		v := rec.Lookup(field)
		if value.IsNull(v) {
			continue
		}
		key := value.Key(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value.Clone(v))
	}
	return out, nil
}

// Paginate drops skip leading records, then caps the rest at limit.
func Paginate(records []*value.Record, skip int, limit *int) []*value.Record {
	if skip > 0 {
		if skip >= len(records) {
			return []*value.Record{}
		}
		records = records[skip:]
	}
	if limit != nil && *limit < len(records) {
		records = records[:max(*limit, 0)]
	}
	return records
}
