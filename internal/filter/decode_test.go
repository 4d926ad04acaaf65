package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

func TestParseJSON_NestedShape(t *testing.T) {
	expr, err := ParseJSON([]byte(`[["age", ">", 28], "AND", [["role", "=", "admin"], "or", ["role", "==", "owner"]]]`))
	require.NoError(t, err)

	require.Len(t, expr, 3)
	assert.Equal(t, C("age", OpGt, value.Int(28)), expr[0])
	assert.Equal(t, And, expr[1])

	group, ok := expr[2].(Group)
	require.True(t, ok)
	assert.Equal(t, Expression{
		C("role", OpEq, value.Text("admin")),
		Or,
		C("role", OpEq, value.Text("owner")),
	}, group.Items)
}

func TestParseJSON_BareCondition(t *testing.T) {
	expr, err := ParseJSON([]byte(`["tags", "not in", ["a", "b"]]`))
	require.NoError(t, err)
	assert.Equal(t, Expression{C("tags", OpNin, value.NewList(value.Text("a"), value.Text("b")))}, expr)
}

func TestParseJSON_Empty(t *testing.T) {
	expr, err := ParseJSON(nil)
	require.NoError(t, err)
	assert.Empty(t, expr)

	expr, err = ParseJSON([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, expr)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := map[string]string{
		"bad json":            `[`,
		"not a list":          `{"age": 1}`,
		"unknown operator":    `[["age", "~", 1]]`,
		"short condition":     `[["age", ">"]]`,
		"operator not string": `[["age", 1, 1]]`,
		"unknown connective":  `[["a","=",1], "xor", ["b","=",2]]`,
		"number item":         `[["a","=",1], 5]`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(input))
			assert.True(t, errdefs.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestParseOperator_Aliases(t *testing.T) {
	tests := map[string]Operator{
		"=": OpEq, "==": OpEq, "!=": OpNe, "<>": OpNe,
		">": OpGt, ">=": OpGte, "<": OpLt, "<=": OpLte,
		"IN": OpIn, "nin": OpNin, "Not  In": OpNin,
		"contains": OpContains, "LIKE": OpContains,
		"startsWith": OpStartsWith, "endswith": OpEndsWith,
	}
	for input, want := range tests {
		got, err := ParseOperator(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseOperator("between")
	assert.True(t, errdefs.IsInvalidRequest(err))
}

func TestFromAny_YAMLStyleValues(t *testing.T) {
	// yaml.v3 decodes integers as int
	expr, err := FromAny([]any{[]any{"age", ">=", 18}, "or", []any{"vip", "=", true}})
	require.NoError(t, err)
	assert.Equal(t, Expression{
		C("age", OpGte, value.Int(18)),
		Or,
		C("vip", OpEq, value.Bool(true)),
	}, expr)

	_, err = FromAny(42)
	assert.True(t, errdefs.IsInvalidRequest(err))
}
