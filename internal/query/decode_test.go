package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
	"github.com/roach88/tabula/internal/value"
)

func TestParseJSON_FullQuery(t *testing.T) {
	q, err := ParseJSON([]byte(`{
		"filters": [["age", ">", 28]],
		"sort": [["age", "desc"], "name", "-created_at", "role asc"],
		"skip": 1,
		"limit": 2,
		"fields": ["id", "age"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, filter.Expression{filter.C("age", filter.OpGt, value.Int(28))}, q.Filter)
	assert.Equal(t, []SortKey{
		By("age", Desc), By("name", Asc), By("created_at", Desc), By("role", Asc),
	}, q.Sort)
	assert.Equal(t, 1, q.Skip)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 2, *q.Limit)
	assert.Equal(t, []string{"id", "age"}, q.Fields)
}

func TestParseJSON_LimitZeroIsKept(t *testing.T) {
	q, err := ParseJSON([]byte(`{"top": 0}`))
	require.NoError(t, err)
	require.NotNil(t, q.Limit)
	assert.Equal(t, 0, *q.Limit)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown key":    `{"where": []}`,
		"bad direction":  `{"sort": [["age", "sideways"]]}`,
		"negative skip":  `{"skip": -2}`,
		"fractional":     `{"limit": 1.5}`,
		"fields numbers": `{"fields": [1]}`,
		"not an object":  `[1]`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(input))
			assert.True(t, errdefs.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestParseSort(t *testing.T) {
	keys, err := ParseSort("age:desc, name,-score")
	require.NoError(t, err)
	assert.Equal(t, []SortKey{By("age", Desc), By("name", Asc), By("score", Desc)}, keys)

	keys, err = ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestCountFilter_AcceptsBothShapes(t *testing.T) {
	bare, err := CountFilter([]any{[]any{"age", ">", 1}})
	require.NoError(t, err)

	wrapped, err := CountFilter(map[string]any{"filters": []any{[]any{"age", ">", 1}}})
	require.NoError(t, err)

	assert.Equal(t, bare, wrapped)

	none, err := CountFilter(map[string]any{"sort": "age"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
