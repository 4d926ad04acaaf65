package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/value"
)

func rec(id int64, fields ...value.Field) *value.Record {
	r := value.RecordOf(value.F("id", value.Int(id)))
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

func ids(records []*value.Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = int64(r.Lookup("id").(value.Int))
	}
	return out
}

func ages() []*value.Record {
	return []*value.Record{
		rec(1, value.F("age", value.Int(25))),
		rec(2, value.F("age", value.Int(35))),
		rec(3, value.F("age", value.Int(30))),
	}
}

func TestRun_SortDescending(t *testing.T) {
	out, err := Run(ages(), &Query{Sort: []SortKey{By("age", Desc)}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 1}, ids(out))
}

func TestRun_FilterRange(t *testing.T) {
	q := &Query{Filter: filter.Expression{
		filter.C("age", filter.OpGt, value.Int(28)),
		filter.And,
		filter.C("age", filter.OpLt, value.Int(40)),
	}}
	out, err := Run(ages(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(out))
}

func TestRun_ReturnsCopies(t *testing.T) {
	input := ages()
	out, err := Run(input, nil)
	require.NoError(t, err)

	out[0].Set("age", value.Int(99))
	assert.Equal(t, value.Int(25), input[0].Lookup("age"))
}

func TestRun_Projection(t *testing.T) {
	input := []*value.Record{rec(1, value.F("name", value.Text("a")), value.F("age", value.Int(3)))}

	out, err := Run(input, &Query{Fields: []string{"name", "nope"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"name"}, out[0].Keys())
}

func TestRun_InvalidQuery(t *testing.T) {
	neg := -1
	tests := map[string]*Query{
		"negative skip":  {Skip: -1},
		"negative limit": {Limit: &neg},
		"bad direction":  {Sort: []SortKey{{Field: "age", Direction: 7}}},
		"empty sort key": {Sort: []SortKey{{Direction: Asc}}},
		"bad operator":   {Filter: filter.Expression{filter.Condition{Field: "a", Op: 0}}},
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			// an empty table still rejects the query
			_, err := Run(nil, q)
			assert.True(t, errdefs.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestSort_MultiKeyPrecedence(t *testing.T) {
	input := []*value.Record{
		rec(1, value.F("role", value.Text("user")), value.F("age", value.Int(30))),
		rec(2, value.F("role", value.Text("admin")), value.F("age", value.Int(40))),
		rec(3, value.F("role", value.Text("user")), value.F("age", value.Int(20))),
		rec(4, value.F("role", value.Text("admin")), value.F("age", value.Int(25))),
	}

	out := Sort(input, []SortKey{By("role", Asc), By("age", Desc)})
	assert.Equal(t, []int64{2, 4, 1, 3}, ids(out))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(input), "input order untouched")
}

func TestSort_Stable(t *testing.T) {
	input := []*value.Record{
		rec(1, value.F("g", value.Int(1))),
		rec(2, value.F("g", value.Int(0))),
		rec(3, value.F("g", value.Int(1))),
		rec(4, value.F("g", value.Int(0))),
		rec(5, value.F("g", value.Int(1))),
	}

	assert.Equal(t, []int64{2, 4, 1, 3, 5}, ids(Sort(input, []SortKey{By("g", Asc)})))
	assert.Equal(t, []int64{1, 3, 5, 2, 4}, ids(Sort(input, []SortKey{By("g", Desc)})))
}

func TestSort_MixedKindsTotalOrder(t *testing.T) {
	ts := value.Time(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	orders := [][]*value.Record{
		{rec(1, value.F("v", value.Text("2030-01-01T00:00:00Z"))), rec(2, value.F("v", value.Text("b"))), rec(3, value.F("v", ts))},
		{rec(3, value.F("v", ts)), rec(2, value.F("v", value.Text("b"))), rec(1, value.F("v", value.Text("2030-01-01T00:00:00Z")))},
		{rec(2, value.F("v", value.Text("b"))), rec(3, value.F("v", ts)), rec(1, value.F("v", value.Text("2030-01-01T00:00:00Z")))},
	}

	for _, input := range orders {
		assert.Equal(t, []int64{1, 2, 3}, ids(Sort(input, []SortKey{By("v", Asc)})))
		assert.Equal(t, []int64{3, 2, 1}, ids(Sort(input, []SortKey{By("v", Desc)})))
	}
}

func TestSort_NullsLastBothDirections(t *testing.T) {
	input := []*value.Record{
		rec(1),
		rec(2, value.F("age", value.Int(5))),
		rec(3, value.F("age", value.Null{})),
		rec(4, value.F("age", value.Int(9))),
	}

	assert.Equal(t, []int64{2, 4, 1, 3}, ids(Sort(input, []SortKey{By("age", Asc)})))
	assert.Equal(t, []int64{4, 2, 1, 3}, ids(Sort(input, []SortKey{By("age", Desc)})))
}

func TestPaginate_Boundary(t *testing.T) {
	input := make([]*value.Record, 5)
	for i := range input {
		input[i] = rec(int64(i + 1))
	}
	limit := func(n int) *int { return &n }

	tests := []struct {
		name  string
		skip  int
		limit *int
		want  []int64
	}{
		{"no paging", 0, nil, []int64{1, 2, 3, 4, 5}},
		{"skip only", 2, nil, []int64{3, 4, 5}},
		{"limit only", 0, limit(2), []int64{1, 2}},
		{"skip and limit", 1, limit(3), []int64{2, 3, 4}},
		{"limit past end", 3, limit(10), []int64{4, 5}},
		{"skip past end", 7, limit(2), []int64{}},
		{"skip equals size", 5, nil, []int64{}},
		{"limit zero", 0, limit(0), []int64{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Paginate(input, tc.skip, tc.limit)
			assert.Equal(t, tc.want, ids(got))

			// max(0, min(M, K-N))
			if tc.limit != nil {
				assert.Equal(t, max(0, min(*tc.limit, len(input)-tc.skip)), len(got))
			}
		})
	}
}

func TestDistinct_FirstOccurrenceOrder(t *testing.T) {
	input := []*value.Record{
		rec(1, value.F("role", value.Text("admin"))),
		rec(2, value.F("role", value.Text("user"))),
		rec(3, value.F("role", value.Text("admin"))),
		rec(4, value.F("role", value.Text("guest"))),
		rec(5, value.F("role", value.Null{})),
		rec(6),
	}

	got, err := Distinct(input, "role", nil)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Text("admin"), value.Text("user"), value.Text("guest")}, got)

	got, err = Distinct(input, "role", filter.Expression{filter.C("id", filter.OpGt, value.Int(2))})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Text("admin"), value.Text("guest")}, got)
}

func TestDistinct_NumbersDedupeAcrossIntAndFloat(t *testing.T) {
	input := []*value.Record{
		rec(1, value.F("n", value.Int(1))),
		rec(2, value.F("n", value.Float(1))),
		rec(3, value.F("n", value.Float(1.5))),
	}
	got, err := Distinct(input, "n", nil)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.Float(1.5)}, got)
}

func TestCount(t *testing.T) {
	input := make([]*value.Record, 5)
	for i := range input {
		input[i] = rec(int64(i + 1))
	}

	n, err := Count(input, filter.Expression{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = Count(input, filter.Expression{filter.C("id", filter.OpIn, value.NewList(value.Int(1), value.Int(5)))})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Count(nil, filter.Expression{filter.Or})
	assert.True(t, errdefs.IsInvalidRequest(err))
}
