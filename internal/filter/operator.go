package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/errdefs"
)

// Operator is a comparison operator usable in a Condition.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpContains
	OpStartsWith
	OpEndsWith
)

var operatorNames = map[Operator]string{
	OpEq:         "=",
	OpNe:         "!=",
	OpGt:         ">",
	OpGte:        ">=",
	OpLt:         "<",
	OpLte:        "<=",
	OpIn:         "in",
	OpNin:        "nin",
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
}

// operatorAliases maps every accepted spelling to its operator.
var operatorAliases = map[string]Operator{
	"=":          OpEq,
	"==":         OpEq,
	"!=":         OpNe,
	"<>":         OpNe,
	">":          OpGt,
	">=":         OpGte,
	"<":          OpLt,
	"<=":         OpLte,
	"in":         OpIn,
	"nin":        OpNin,
	"not in":     OpNin,
	"contains":   OpContains,
	"like":       OpContains,
	"startswith": OpStartsWith,
	"endswith":   OpEndsWith,
}

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("operator(%d)", int(op))
}

// Valid reports whether op is one of the defined operators.
func (op Operator) Valid() bool {
	_, ok := operatorNames[op]
	return ok
}

// ParseOperator resolves an operator spelling. Matching ignores case and
// collapses inner whitespace, so "NOT  IN" parses as OpNin.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return 0, errdefs.InvalidRequest("unsupported operator %q", s)
}
