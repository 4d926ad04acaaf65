package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

func person(id int64, age int64, role string) *value.Record {
	return value.RecordOf(
		value.F("id", value.Int(id)),
		value.F("age", value.Int(age)),
		value.F("role", value.Text(role)),
	)
}

func mustEval(t *testing.T, expr Expression, rec *value.Record) bool {
	t.Helper()
	ok, err := Evaluate(expr, rec)
	require.NoError(t, err)
	return ok
}

func TestEvaluate_EmptyMatchesEverything(t *testing.T) {
	assert.True(t, mustEval(t, nil, person(1, 25, "admin")))
	assert.True(t, mustEval(t, Expression{}, nil))
	assert.True(t, mustEval(t, Expression{Group{}}, person(1, 25, "admin")))
}

func TestEvaluate_RangeConjunction(t *testing.T) {
	expr := Expression{
		C("age", OpGt, value.Int(28)),
		And,
		C("age", OpLt, value.Int(40)),
	}

	assert.False(t, mustEval(t, expr, person(1, 25, "x")))
	assert.True(t, mustEval(t, expr, person(2, 35, "x")))
	assert.True(t, mustEval(t, expr, person(3, 30, "x")))
}

func TestEvaluate_LeftToRightFoldWithoutPrecedence(t *testing.T) {
	// A or B and C with A=true, B=false, C=false.
	// Left fold: (true or false) and false = false.
	// Conventional precedence would give true or (false and false) = true.
	rec := person(1, 25, "admin")
	expr := Expression{
		C("role", OpEq, value.Text("admin")),
		Or,
		C("age", OpGt, value.Int(100)),
		And,
		C("age", OpLt, value.Int(0)),
	}
	assert.False(t, mustEval(t, expr, rec))

	grouped := Expression{
		C("role", OpEq, value.Text("admin")),
		Or,
		Nest(C("age", OpGt, value.Int(100)), And, C("age", OpLt, value.Int(0))),
	}
	assert.True(t, mustEval(t, grouped, rec))
}

func TestEvaluate_AdjacentOperandsJoinWithAnd(t *testing.T) {
	expr := Expression{C("age", OpGt, value.Int(20)), C("role", OpEq, value.Text("user"))}
	assert.False(t, mustEval(t, expr, person(1, 25, "admin")))
	assert.True(t, mustEval(t, expr, person(1, 25, "user")))
}

func TestEvaluate_MisplacedConnectives(t *testing.T) {
	cond := C("age", OpGt, value.Int(1))
	tests := map[string]Expression{
		"leading":     {And, cond},
		"trailing":    {cond, Or},
		"consecutive": {cond, And, Or, cond},
		"unknown":     {cond, Connective(9), cond},
	}
	for name, expr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(expr, person(1, 2, "x"))
			assert.True(t, errdefs.IsInvalidRequest(err), "got %v", err)
			assert.True(t, errdefs.IsInvalidRequest(Validate(expr)))
		})
	}
}

func TestEvaluate_UnsupportedOperator(t *testing.T) {
	expr := Expression{Condition{Field: "age", Op: Operator(99), Value: value.Int(1)}}

	_, err := Evaluate(expr, person(1, 2, "x"))
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidRequest(err))
	assert.Contains(t, err.Error(), "unsupported operator")
}

func TestEvaluate_ErrorSurfacesEvenWhenResultIsDecided(t *testing.T) {
	expr := Expression{
		C("role", OpEq, value.Text("admin")),
		Or,
		C("role", OpGt, value.Int(3)), // text vs number
	}
	_, err := Evaluate(expr, person(1, 2, "admin"))
	assert.True(t, errdefs.IsInvalidRequest(err))
}

func TestCondition_Operators(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := value.RecordOf(
		value.F("name", value.Text("Straße Café")),
		value.F("age", value.Int(30)),
		value.F("score", value.Float(4.5)),
		value.F("active", value.Bool(true)),
		value.F("created_at", value.Time(created)),
		value.F("nothing", value.Null{}),
	)

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq", C("age", OpEq, value.Int(30)), true},
		{"eq int float", C("age", OpEq, value.Float(30)), true},
		{"eq strict kind", C("age", OpEq, value.Text("30")), false},
		{"eq absent is null", C("missing", OpEq, value.Null{}), true},
		{"ne", C("age", OpNe, value.Int(31)), true},
		{"ne bool", C("active", OpNe, value.Bool(true)), false},
		{"gt", C("score", OpGt, value.Int(4)), true},
		{"gte equal", C("age", OpGte, value.Int(30)), true},
		{"lt", C("age", OpLt, value.Int(30)), false},
		{"lte", C("age", OpLte, value.Int(30)), true},
		{"text order", C("name", OpGt, value.Text("A")), true},
		{"time vs text", C("created_at", OpGt, value.Text("2024-01-01T00:00:00Z")), true},
		{"time vs time", C("created_at", OpLt, value.Time(created)), false},
		{"gt on null field", C("nothing", OpGt, value.Int(1)), false},
		{"gt on absent field", C("missing", OpLt, value.Int(1)), false},
		{"in", C("age", OpIn, value.NewList(value.Int(1), value.Int(30))), true},
		{"in miss", C("age", OpIn, value.NewList(value.Int(1))), false},
		{"nin", C("age", OpNin, value.NewList(value.Int(1))), true},
		{"nin hit", C("age", OpNin, value.NewList(value.Float(30))), false},
		{"contains folded", C("name", OpContains, value.Text("STRASSE")), true},
		{"contains number", C("age", OpContains, value.Text("3")), true},
		{"contains null field", C("nothing", OpContains, value.Text("")), false},
		{"startswith", C("name", OpStartsWith, value.Text("straße")), true},
		{"startswith miss", C("name", OpStartsWith, value.Text("café")), false},
		{"endswith", C("name", OpEndsWith, value.Text("CAFÉ")), true},
		{"endswith nfc", C("name", OpEndsWith, value.Text("cafe\u0301")), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cond.Match(rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCondition_InvalidOperands(t *testing.T) {
	rec := person(1, 30, "admin")

	tests := map[string]Condition{
		"in needs list":          C("age", OpIn, value.Int(30)),
		"nin needs list":         C("age", OpNin, value.Text("x")),
		"order incompatible":     C("age", OpGt, value.Text("abc")),
		"order on bool operand":  C("role", OpLt, value.Bool(true)),
		"order unparseable time": C("role", OpGt, value.Time(time.Now())),
	}
	for name, cond := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := cond.Match(rec)
			assert.True(t, errdefs.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate(Expression{
		C("a", OpEq, value.Int(1)), Or, Nest(C("b", OpIn, value.NewList()), And, C("c", OpGt, value.Null{})),
	}))

	assert.Error(t, Validate(Expression{C("", OpEq, value.Int(1))}))
	assert.Error(t, Validate(Expression{C("a", OpIn, value.Int(1))}))
	assert.Error(t, Validate(Expression{C("a", OpGt, value.NewList())}))
	assert.Error(t, Validate(Expression{Nest(C("a", OpEq, value.Int(1)), And)}))
	assert.Error(t, Validate(Expression{nil}))
}

func TestExpression_String(t *testing.T) {
	expr := Expression{
		C("age", OpGt, value.Int(28)),
		And,
		Nest(C("role", OpEq, value.Text("admin")), Or, C("tags", OpIn, value.NewList(value.Text("x")))),
	}
	assert.Equal(t, `age > 28 and (role = "admin" or tags in ["x"])`, expr.String())
}
