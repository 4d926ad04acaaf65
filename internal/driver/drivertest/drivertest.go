// Package drivertest holds the conformance suite every driver.Driver
// implementation runs from its own tests.
package drivertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/query"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/value"
)

// Factory builds a connected driver. The suite always passes a fixed clock
// and id generator ahead of test-specific options.
type Factory func(t *testing.T, opts ...driver.Option) (driver.Driver, error)

// Run executes the conformance suite against drivers built by factory.
func Run(t *testing.T, factory Factory) {
	s := &suite{factory: factory}

	t.Run("CreateGeneratesIDAndRejectsDuplicate", s.testCreateGeneratesIDAndRejectsDuplicate)
	t.Run("CreateStampsTimestamps", s.testCreateStampsTimestamps)
	t.Run("RoundTripReturnsCopies", s.testRoundTripReturnsCopies)
	t.Run("FindSortsDescending", s.testFindSortsDescending)
	t.Run("FindFiltersRange", s.testFindFiltersRange)
	t.Run("FindPaginatesAndProjects", s.testFindPaginatesAndProjects)
	t.Run("FindKeepsInsertionOrder", s.testFindKeepsInsertionOrder)
	t.Run("FindOneWithQuery", s.testFindOneWithQuery)
	t.Run("IDsAddressedByTextForm", s.testIDsAddressedByTextForm)
	t.Run("UpdateMissingLenient", s.testUpdateMissingLenient)
	t.Run("UpdateMissingStrict", s.testUpdateMissingStrict)
	t.Run("UpdateKeepsImmutableFields", s.testUpdateKeepsImmutableFields)
	t.Run("DeleteReportsRemoval", s.testDeleteReportsRemoval)
	t.Run("CountWithAndWithoutFilter", s.testCountWithAndWithoutFilter)
	t.Run("DistinctFirstOccurrence", s.testDistinctFirstOccurrence)
	t.Run("MissingTableReadsEmpty", s.testMissingTableReadsEmpty)
	t.Run("InvalidRequests", s.testInvalidRequests)
	t.Run("InitialDataRejectsDuplicates", s.testInitialDataRejectsDuplicates)
	t.Run("CancelledContextTouchesNothing", s.testCancelledContextTouchesNothing)
	t.Run("ConcurrentCreatesConflict", s.testConcurrentCreatesConflict)
}

type suite struct {
	factory Factory
}

func (s *suite) open(t *testing.T, opts ...driver.Option) driver.Driver {
	t.Helper()
	base := []driver.Option{
		driver.WithClock(testutil.NewFixedClock()),
		driver.WithIDGenerator(testutil.NewSequenceIDs("gen")),
	}
	d, err := s.factory(t, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Disconnect(context.Background()) })
	return d
}

// Rec builds a record from alternating name/value pairs converted with
// value.FromAny.
func Rec(t *testing.T, pairs ...any) *value.Record {
	t.Helper()
	require.Zero(t, len(pairs)%2, "Rec needs name/value pairs")
	r := value.NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		v, err := value.FromAny(pairs[i+1])
		require.NoError(t, err)
		r.Set(pairs[i].(string), v)
	}
	return r
}

func ages(t *testing.T) map[string][]*value.Record {
	return map[string][]*value.Record{
		"t": {
			Rec(t, "id", 1, "age", 25, "role", "admin"),
			Rec(t, "id", 2, "age", 35, "role", "user"),
			Rec(t, "id", 3, "age", 30, "role", "admin"),
			Rec(t, "id", 4, "age", 41, "role", "guest"),
			Rec(t, "id", 5, "role", nil),
		},
	}
}

// IDs extracts the id field of each record in its text form.
func IDs(records []*value.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = value.IDKey(driver.IDOf(r))
	}
	return out
}

func (s *suite) testCreateGeneratesIDAndRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)

	alice, err := d.Create(ctx, "users", Rec(t, "name", "Alice", "role", "admin"))
	require.NoError(t, err)
	id := driver.IDOf(alice)
	require.False(t, value.IsNull(id))
	assert.Equal(t, value.Text("gen-1"), id)

	_, err = d.Create(ctx, "users", Rec(t, "id", "gen-1", "name", "Bob"))
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err), "got %v", err)

	stored, err := d.FindOne(ctx, "users", id, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Text("Alice"), stored.Lookup("name"), "table unchanged by rejected create")

	n, err := d.Count(ctx, "users", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func (s *suite) testCreateStampsTimestamps(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithClock(testutil.NewFixedClockAt(testutil.Epoch, time.Minute)))

	out, err := d.Create(ctx, "t", Rec(t, "id", "a"))
	require.NoError(t, err)
	assert.Equal(t, value.NewTime(testutil.Epoch), out.Lookup(driver.FieldCreatedAt))
	assert.Equal(t, value.NewTime(testutil.Epoch), out.Lookup(driver.FieldUpdatedAt))

	supplied := time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
	out, err = d.Create(ctx, "t", Rec(t, "id", "b", "created_at", supplied))
	require.NoError(t, err)
	assert.Equal(t, value.NewTime(supplied), out.Lookup(driver.FieldCreatedAt))
}

func (s *suite) testRoundTripReturnsCopies(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)

	created, err := d.Create(ctx, "t", Rec(t, "id", "r1", "tags", []any{"a", "b"}, "score", 1.5))
	require.NoError(t, err)

	found, err := d.FindOne(ctx, "t", value.Text("r1"), nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, value.Equal(created, found), "round trip: %v vs %v", created, found)
	assert.Equal(t, created.Keys(), found.Keys())

	created.Set("score", value.Int(99))
	found.Set("tags", value.NewList())
	all, err := d.Find(ctx, "t", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	all[0].Delete("tags")

	again, err := d.FindOne(ctx, "t", value.Text("r1"), nil)
	require.NoError(t, err)
	assert.Equal(t, value.Float(1.5), again.Lookup("score"))
	assert.Equal(t, value.NewList(value.Text("a"), value.Text("b")), again.Lookup("tags"))
}

func (s *suite) testFindSortsDescending(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(map[string][]*value.Record{
		"t": {Rec(t, "id", 1, "age", 25), Rec(t, "id", 2, "age", 35), Rec(t, "id", 3, "age", 30)},
	}))

	out, err := d.Find(ctx, "t", &query.Query{Sort: []query.SortKey{query.By("age", query.Desc)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1"}, IDs(out))
}

func (s *suite) testFindFiltersRange(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(map[string][]*value.Record{
		"t": {Rec(t, "id", 1, "age", 25), Rec(t, "id", 2, "age", 35), Rec(t, "id", 3, "age", 30)},
	}))

	q := &query.Query{Filter: filter.Expression{
		filter.C("age", filter.OpGt, value.Int(28)),
		filter.And,
		filter.C("age", filter.OpLt, value.Int(40)),
	}}
	out, err := d.Find(ctx, "t", q)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, IDs(out))
}

func (s *suite) testFindPaginatesAndProjects(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	limit := 2
	out, err := d.Find(ctx, "t", &query.Query{
		Sort:   []query.SortKey{query.By("age", query.Asc)},
		Skip:   1,
		Limit:  &limit,
		Fields: []string{"id", "age", "missing"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"3", "2"}, IDs(out))
	assert.Equal(t, []string{"id", "age"}, out[0].Keys())

	// record 5 has no age and sorts last
	out, err = d.Find(ctx, "t", &query.Query{Sort: []query.SortKey{query.By("age", query.Desc)}, Skip: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, IDs(out))

	zero := 0
	out, err = d.Find(ctx, "t", &query.Query{Limit: &zero})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func (s *suite) testFindKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)

	for _, id := range []string{"c", "a", "b"} {
		_, err := d.Create(ctx, "t", Rec(t, "id", id, "group", 1))
		require.NoError(t, err)
	}
	_, err := d.Update(ctx, "t", value.Text("c"), Rec(t, "group", 1))
	require.NoError(t, err)

	out, err := d.Find(ctx, "t", &query.Query{Sort: []query.SortKey{query.By("group", query.Asc)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, IDs(out), "ties keep insertion order, update keeps position")
}

func (s *suite) testFindOneWithQuery(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	got, err := d.FindOne(ctx, "t", value.Int(2), &query.Query{Fields: []string{"role"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"role"}, got.Keys())

	got, err = d.FindOne(ctx, "t", value.Null{}, &query.Query{
		Filter: filter.Expression{filter.C("role", filter.OpEq, value.Text("admin"))},
		Sort:   []query.SortKey{query.By("age", query.Desc)},
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, value.Int(3), driver.IDOf(got))

	got, err = d.FindOne(ctx, "t", value.Text("nope"), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = d.FindOne(ctx, "t", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func (s *suite) testIDsAddressedByTextForm(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	got, err := d.FindOne(ctx, "t", value.Text("1"), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, value.Int(1), driver.IDOf(got), "stored id keeps its kind")

	_, err = d.Create(ctx, "t", Rec(t, "id", "1"))
	assert.True(t, errdefs.IsConflict(err))
}

func (s *suite) testUpdateMissingLenient(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	out, err := d.Update(ctx, "t", value.Text("missing-id"), Rec(t, "age", 99))
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = d.Update(ctx, "nosuchtable", value.Int(1), Rec(t, "age", 99))
	require.NoError(t, err)
	assert.Nil(t, out)

	n, err := d.Count(ctx, "nosuchtable", nil)
	require.NoError(t, err)
	assert.Zero(t, n, "lenient update does not create tables")
}

func (s *suite) testUpdateMissingStrict(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithStrictMode(true), driver.WithInitialData(ages(t)))

	out, err := d.Update(ctx, "t", value.Text("missing-id"), Rec(t, "age", 99))
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err), "got %v", err)
	assert.Nil(t, out)

	_, err = d.Update(ctx, "nosuchtable", value.Int(1), Rec(t, "age", 99))
	assert.True(t, errdefs.IsNotFound(err))

	got, err := d.FindOne(ctx, "t", value.Text("missing-id"), nil)
	require.NoError(t, err, "findOne never raises, even in strict mode")
	assert.Nil(t, got)
}

func (s *suite) testUpdateKeepsImmutableFields(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)

	created, err := d.Create(ctx, "t", Rec(t, "id", "u1", "age", 30, "nested", map[string]any{"a": 1}))
	require.NoError(t, err)

	updated, err := d.Update(ctx, "t", value.Text("u1"), Rec(t,
		"id", "other",
		"created_at", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		"age", 31,
		"nested", map[string]any{"b": 2},
	))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, value.Text("u1"), driver.IDOf(updated))
	assert.Equal(t, created.Lookup(driver.FieldCreatedAt), updated.Lookup(driver.FieldCreatedAt))
	assert.Equal(t, value.Int(31), updated.Lookup("age"))

	nested := updated.Lookup("nested").(*value.Record)
	assert.Equal(t, []string{"b"}, nested.Keys(), "merge is shallow")

	createdAt := created.Lookup(driver.FieldCreatedAt).(value.Time).Std()
	updatedAt := updated.Lookup(driver.FieldUpdatedAt).(value.Time).Std()
	assert.True(t, updatedAt.After(createdAt))

	stored, err := d.FindOne(ctx, "t", value.Text("u1"), nil)
	require.NoError(t, err)
	assert.True(t, value.Equal(updated, stored))

	gone, err := d.FindOne(ctx, "t", value.Text("other"), nil)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func (s *suite) testDeleteReportsRemoval(t *testing.T) {
	ctx := context.Background()
	for _, strict := range []bool{false, true} {
		d := s.open(t, driver.WithStrictMode(strict), driver.WithInitialData(ages(t)))

		removed, err := d.Delete(ctx, "t", value.Int(1))
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = d.Delete(ctx, "t", value.Int(1))
		assert.False(t, removed)
		if strict {
			assert.True(t, errdefs.IsNotFound(err), "strict: got %v", err)
		} else {
			assert.NoError(t, err)
		}

		n, err := d.Count(ctx, "t", nil)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	}
}

func (s *suite) testCountWithAndWithoutFilter(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	n, err := d.Count(ctx, "t", filter.Expression{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = d.Count(ctx, "t", filter.Expression{
		filter.C("role", filter.OpEq, value.Text("admin")),
		filter.Or,
		filter.C("age", filter.OpGte, value.Int(41)),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func (s *suite) testDistinctFirstOccurrence(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))

	got, err := d.Distinct(ctx, "t", "role", nil)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Text("admin"), value.Text("user"), value.Text("guest")}, got)

	got, err = d.Distinct(ctx, "t", "role", filter.Expression{filter.C("age", filter.OpGt, value.Int(26))})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Text("user"), value.Text("admin"), value.Text("guest")}, got)
}

func (s *suite) testMissingTableReadsEmpty(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)

	out, err := d.Find(ctx, "ghost", &query.Query{Sort: []query.SortKey{query.By("x", query.Asc)}})
	require.NoError(t, err)
	assert.Empty(t, out)

	n, err := d.Count(ctx, "ghost", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	vals, err := d.Distinct(ctx, "ghost", "x", nil)
	require.NoError(t, err)
	assert.Empty(t, vals)

	removed, err := d.Delete(ctx, "ghost", value.Int(1))
	require.NoError(t, err)
	assert.False(t, removed)
}

func (s *suite) testInvalidRequests(t *testing.T) {
	ctx := context.Background()
	d := s.open(t, driver.WithInitialData(ages(t)))
	bad := filter.Expression{filter.Condition{Field: "age", Op: filter.Operator(99), Value: value.Int(1)}}

	_, err := d.Find(ctx, "t", &query.Query{Filter: bad})
	assert.True(t, errdefs.IsInvalidRequest(err), "find: %v", err)

	_, err = d.Count(ctx, "t", bad)
	assert.True(t, errdefs.IsInvalidRequest(err), "count: %v", err)

	_, err = d.Distinct(ctx, "t", "role", bad)
	assert.True(t, errdefs.IsInvalidRequest(err), "distinct: %v", err)

	// an empty table still rejects the operator
	_, err = d.Find(ctx, "ghost", &query.Query{Filter: bad})
	assert.True(t, errdefs.IsInvalidRequest(err), "empty table: %v", err)

	_, err = d.Find(ctx, "t", &query.Query{Filter: filter.Expression{
		filter.C("role", filter.OpGt, value.Int(1)),
	}})
	assert.True(t, errdefs.IsInvalidRequest(err), "incomparable kinds: %v", err)

	_, err = d.Create(ctx, "t", Rec(t, "id", true))
	assert.True(t, errdefs.IsInvalidRequest(err), "bool id: %v", err)
}

func (s *suite) testInitialDataRejectsDuplicates(t *testing.T) {
	_, err := s.factory(t,
		driver.WithClock(testutil.NewFixedClock()),
		driver.WithInitialData(map[string][]*value.Record{
			"t": {Rec(t, "id", 1), Rec(t, "id", 1)},
		}),
	)
	require.Error(t, err)
	assert.True(t, errdefs.IsConflict(err), "got %v", err)
}

func (s *suite) testCancelledContextTouchesNothing(t *testing.T) {
	d := s.open(t, driver.WithInitialData(ages(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Create(ctx, "t", Rec(t, "id", 100))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = d.Update(ctx, "t", value.Int(1), Rec(t, "age", 1))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = d.Delete(ctx, "t", value.Int(1))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = d.Find(ctx, "t", nil)
	assert.ErrorIs(t, err, context.Canceled)

	live := context.Background()
	n, err := d.Count(live, "t", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	one, err := d.FindOne(live, "t", value.Int(1), nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(25), one.Lookup("age"))
}

func (s *suite) testConcurrentCreatesConflict(t *testing.T) {
	ctx := context.Background()
	d := s.open(t)
	const writers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	rec := Rec(t, "id", "same")
	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()
			_, err := d.Create(ctx, "race", rec)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errdefs.IsConflict(err):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
}
