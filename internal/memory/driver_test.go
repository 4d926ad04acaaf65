package memory

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/driver"
	"github.com/roach88/tabula/internal/driver/drivertest"
	"github.com/roach88/tabula/internal/testutil"
	"github.com/roach88/tabula/internal/value"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDriverConformance(t *testing.T) {
	drivertest.Run(t, func(t *testing.T, opts ...driver.Option) (driver.Driver, error) {
		d, err := New(append([]driver.Option{driver.WithLogger(quietLogger())}, opts...)...)
		if err != nil {
			return nil, err
		}
		return d, d.Connect(context.Background())
	})
}

func TestCreate_LazilyCreatesTable(t *testing.T) {
	d, err := New(driver.WithLogger(quietLogger()), driver.WithIDGenerator(testutil.NewSequenceIDs("u")))
	require.NoError(t, err)
	assert.Empty(t, d.Store().Objects())

	_, err = d.Update(context.Background(), "users", value.Text("u-1"), value.NewRecord())
	require.NoError(t, err)
	assert.Empty(t, d.Store().Objects(), "lenient update leaves the store alone")

	_, err = d.Create(context.Background(), "users", value.RecordOf(value.F("name", value.Text("A"))))
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, d.Store().Objects())
}

func TestMutations_LogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d, err := New(
		driver.WithLogger(logger),
		driver.WithStrictMode(true),
		driver.WithClock(testutil.NewFixedClock()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = d.Create(ctx, "t", value.RecordOf(value.F("id", value.Text("a"))))
	require.NoError(t, err)
	_, err = d.Create(ctx, "t", value.RecordOf(value.F("id", value.Text("a"))))
	require.Error(t, err)
	_, err = d.Delete(ctx, "t", value.Text("zzz"))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="record created" driver=memory object=t id=a`)
	assert.Contains(t, out, "code=CONFLICT")
	assert.Contains(t, out, "code=NOT_FOUND")
}

func TestTable_RemoveKeepsOrder(t *testing.T) {
	tbl := newTable()
	for _, k := range []string{"a", "b", "c"} {
		require.True(t, tbl.Insert(k, value.RecordOf(value.F("id", value.Text(k)))))
	}
	assert.False(t, tbl.Insert("b", value.NewRecord()))

	assert.True(t, tbl.Remove("b"))
	assert.False(t, tbl.Remove("b"))

	snap := tbl.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, value.Text("a"), snap[0].Lookup("id"))
	assert.Equal(t, value.Text("c"), snap[1].Lookup("id"))

	// re-inserting appends at the end
	require.True(t, tbl.Insert("b", value.RecordOf(value.F("id", value.Text("b")))))
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, value.Text("b"), tbl.Snapshot()[2].Lookup("id"))
}

func TestTable_ReplaceKeepsPosition(t *testing.T) {
	tbl := newTable()
	tbl.Insert("a", value.RecordOf(value.F("v", value.Int(1))))
	tbl.Insert("b", value.RecordOf(value.F("v", value.Int(2))))

	ok := tbl.Replace("a", func(existing *value.Record) *value.Record {
		next := existing.Clone()
		next.Set("v", value.Int(10))
		return next
	})
	require.True(t, ok)
	assert.False(t, tbl.Replace("zzz", func(r *value.Record) *value.Record { return r }))

	snap := tbl.Snapshot()
	assert.Equal(t, value.Int(10), snap[0].Lookup("v"))
	assert.Equal(t, value.Int(2), snap[1].Lookup("v"))
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Table("x"))
	a := s.Ensure("x")
	assert.Same(t, a, s.Ensure("x"))
	assert.Same(t, a, s.Table("x"))
}
