package filter

import (
	"strings"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

// Evaluate reports whether rec satisfies expr.
//
// Operands are evaluated left to right, then folded without precedence:
// result = (result OR next) for "or", (result AND next) for "and". Two
// operands with no connective between them are joined with "and".
func Evaluate(expr Expression, rec *value.Record) (bool, error) {
	var (
		operands    []bool
		connectives []Connective
		pending     bool // a connective is waiting for its right operand
	)

	push := func(b bool) {
		if len(operands) > 0 && !pending {
			connectives = append(connectives, And)
		}
		operands = append(operands, b)
		pending = false
	}

	for _, item := range expr {
		switch it := item.(type) {
		case Connective:
			if err := checkConnective(it, len(operands) == 0, pending); err != nil {
				return false, err
			}
			connectives = append(connectives, it)
			pending = true
		case Condition:
			ok, err := it.Match(rec)
			if err != nil {
				return false, err
			}
			push(ok)
		case *Condition:
			ok, err := it.Match(rec)
			if err != nil {
				return false, err
			}
			push(ok)
		case Group:
			ok, err := Evaluate(it.Items, rec)
			if err != nil {
				return false, err
			}
			push(ok)
		case *Group:
			ok, err := Evaluate(it.Items, rec)
			if err != nil {
				return false, err
			}
			push(ok)
		default:
			return false, errdefs.InvalidRequest("unsupported filter item %T", item)
		}
	}

	if pending {
		return false, errdefs.InvalidRequest("filter cannot end with %q", connectives[len(connectives)-1])
	}
	if len(operands) == 0 {
		return true, nil
	}

	result := operands[0]
	for i, next := range operands[1:] {
		if connectives[i] == Or {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result, nil
}

func checkConnective(c Connective, first, pending bool) error {
	switch {
	case c != And && c != Or:
		return errdefs.InvalidRequest("unsupported connective %s", c)
	case first:
		return errdefs.InvalidRequest("filter cannot start with %q", c)
	case pending:
		return errdefs.InvalidRequest("connective %q must follow a condition or group", c)
	}
	return nil
}

// Match evaluates the condition against one record.
func (c Condition) Match(rec *value.Record) (bool, error) {
	field := rec.Lookup(c.Field)

	switch c.Op {
	case OpEq:
		return value.Equal(field, c.Value), nil
	case OpNe:
		return !value.Equal(field, c.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		return c.matchOrdering(field)
	case OpIn:
		list, err := c.listValue()
		if err != nil {
			return false, err
		}
		return containsValue(list, field), nil
	case OpNin:
		list, err := c.listValue()
		if err != nil {
			return false, err
		}
		return !containsValue(list, field), nil
	case OpContains:
		return matchText(field, c.Value, strings.Contains), nil
	case OpStartsWith:
		return matchText(field, c.Value, strings.HasPrefix), nil
	case OpEndsWith:
		return matchText(field, c.Value, strings.HasSuffix), nil
	default:
		return false, errdefs.InvalidRequest("unsupported operator %s", c.Op)
	}
}

// matchOrdering handles >, >=, <, <=. A null on either side never matches;
// two non-null values of incomparable kinds are a caller error.
func (c Condition) matchOrdering(field value.Value) (bool, error) {
	if value.IsNull(field) || value.IsNull(c.Value) {
		return false, nil
	}
	cmp, err := value.Compare(field, c.Value)
	if err != nil {
		return false, errdefs.WrapInvalidRequest(err, "field %q with operator %s", c.Field, c.Op)
	}

	switch c.Op {
	case OpGt:
		return cmp > 0, nil
	case OpGte:
		return cmp >= 0, nil
	case OpLt:
		return cmp < 0, nil
	default:
		return cmp <= 0, nil
	}
}

func (c Condition) listValue() (value.List, error) {
	list, ok := c.Value.(value.List)
	if !ok {
		return nil, errdefs.InvalidRequest("operator %s on field %q requires a list value, got %s",
			c.Op, c.Field, value.KindOf(c.Value))
	}
	return list, nil
}

func containsValue(list value.List, v value.Value) bool {
	for _, elem := range list {
		if value.Equal(elem, v) {
			return true
		}
	}
	return false
}
