package value

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same text", Text("a"), Text("a"), true},
		{"different text", Text("a"), Text("b"), false},
		{"int and float", Int(1), Float(1.0), true},
		{"text is not number", Text("1"), Int(1), false},
		{"nil reads as null", nil, Null{}, true},
		{"null vs zero", Null{}, Int(0), false},
		{"times", Time(ts), Time(ts.In(time.FixedZone("x", 3600))), true},
		{"lists deep", NewList(Int(1), Text("a")), NewList(Float(1), Text("a")), true},
		{"lists length", NewList(Int(1)), NewList(Int(1), Int(2)), false},
		{"records ignore order", RecordOf(F("a", Int(1)), F("b", Int(2))), RecordOf(F("b", Int(2)), F("a", Int(1))), true},
		{"records differ", RecordOf(F("a", Int(1))), RecordOf(F("a", Int(2))), false},
		{"bools", Bool(true), Bool(true), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
			assert.Equal(t, tc.want, Key(tc.a) == Key(tc.b), "Key must agree with Equal")
		})
	}
}

func TestCompare(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	c, err := Compare(Int(2), Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(Text("apple"), Text("banana"))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Compare(Time(ts), Text("2023-12-31T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = Compare(Text("2024-01-02T00:00:00Z"), Time(ts))
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = Compare(Int(1), Text("1"))
	assert.True(t, errors.Is(err, ErrIncomparable))

	_, err = Compare(Bool(true), Bool(false))
	assert.True(t, errors.Is(err, ErrIncomparable))

	_, err = Compare(Time(ts), Text("yesterday"))
	assert.True(t, errors.Is(err, ErrIncomparable))
}

func TestSortCompare_KindRank(t *testing.T) {
	assert.Equal(t, -1, SortCompare(Int(100), Text("a")))
	assert.Equal(t, 1, SortCompare(Bool(false), Text("z")))
	assert.Equal(t, -1, SortCompare(Bool(false), Bool(true)))
	assert.Equal(t, 0, SortCompare(Int(3), Float(3)))
}

func TestSortCompare_TextAndTimeAreTransitive(t *testing.T) {
	date := Text("2030-01-01T00:00:00Z")
	word := Text("b")
	ts := Time(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, -1, SortCompare(date, word))
	assert.Equal(t, -1, SortCompare(word, ts))
	assert.Equal(t, -1, SortCompare(date, ts))
	assert.Equal(t, 1, SortCompare(ts, date))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(Null{}))
	assert.Equal(t, "42", Stringify(Int(42)))
	assert.Equal(t, "2.5", Stringify(Float(2.5)))
	assert.Equal(t, "true", Stringify(Bool(true)))
	assert.Equal(t, "2024-01-02T03:04:05Z", Stringify(Time(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))))
	assert.Equal(t, `["a",1]`, Stringify(NewList(Text("a"), Int(1))))
}

func TestIDKey(t *testing.T) {
	assert.Equal(t, "abc", IDKey(Text("abc")))
	assert.Equal(t, "7", IDKey(Int(7)))
	assert.Equal(t, "7", IDKey(Float(7)))
	assert.Equal(t, "7.5", IDKey(Float(7.5)))
}
