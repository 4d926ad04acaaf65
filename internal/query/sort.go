package query

import (
	"slices"

	"github.com/roach88/tabula/internal/value"
)

// Sort orders records by keys and returns a new slice; the input is untouched.
//
// Keys are applied from least to most significant, each pass a stable sort.
// The last pass decides the primary order and earlier passes survive as
// tie-breaks, which gives the same result as one multi-key comparator.
// Null and absent values sort after every non-null value in both directions.
func Sort(records []*value.Record, keys []SortKey) []*value.Record {
	out := slices.Clone(records)
	for i := len(keys) - 1; i >= 0; i-- {
		key := keys[i]
		slices.SortStableFunc(out, func(a, b *value.Record) int {
			return compareField(a.Lookup(key.Field), b.Lookup(key.Field), key.Direction)
		})
	}
	return out
}

func compareField(a, b value.Value, dir Direction) int {
	aNull, bNull := value.IsNull(a), value.IsNull(b)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return 1
	case bNull:
		return -1
	}

	c := value.SortCompare(a, b)
	if dir == Desc {
		return -c
	}
	return c
}
