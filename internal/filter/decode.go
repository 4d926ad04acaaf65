package filter

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

// FromAny decodes the nested-list wire shape used by JSON, YAML and CUE
// callers:
//
//	[["age", ">", 28], "and", [["role", "=", "admin"], "or", ["role", "=", "owner"]]]
//
// A string item is a connective. A list whose first element is a string is a
// condition and must have exactly three elements. A list whose first element
// is a list (or an empty list) is a nested group. A bare condition such as
// ["age", ">", 28] is accepted at the top level.
func FromAny(raw any) (Expression, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case Expression:
		return v, nil
	case []Item:
		return Expression(v), nil
	case []any:
		if isBareCondition(v) {
			cond, err := decodeCondition(v)
			if err != nil {
				return nil, err
			}
			return Expression{cond}, nil
		}
		return decodeItems(v)
	}
	return nil, errdefs.InvalidRequest("filter must be a list, got %T", raw)
}

// ParseJSON decodes a JSON filter expression.
func ParseJSON(data []byte) (Expression, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errdefs.WrapInvalidRequest(err, "decode filter")
	}
	return FromAny(raw)
}

func decodeItems(items []any) (Expression, error) {
	expr := make(Expression, 0, len(items))
	for i, raw := range items {
		item, err := decodeItem(raw)
		if err != nil {
			return nil, errdefs.WrapInvalidRequest(err, "filter item %d", i)
		}
		expr = append(expr, item)
	}
	return expr, nil
}

func decodeItem(raw any) (Item, error) {
	switch v := raw.(type) {
	case string:
		c, ok := ParseConnective(v)
		if !ok {
			return nil, errdefs.InvalidRequest("unknown connective %q", v)
		}
		return c, nil
	case Item:
		return v, nil
	case []any:
		if len(v) == 0 {
			return Group{}, nil
		}
		if _, isField := v[0].(string); isField {
			return decodeCondition(v)
		}
		nested, err := decodeItems(v)
		if err != nil {
			return nil, err
		}
		return Group{Items: nested}, nil
	}
	return nil, errdefs.InvalidRequest("unsupported filter item %T", raw)
}

func decodeCondition(v []any) (Condition, error) {
	if len(v) != 3 {
		return Condition{}, errdefs.InvalidRequest("condition needs [field, operator, value], got %d elements", len(v))
	}
	field, _ := v[0].(string)
	opText, ok := v[1].(string)
	if !ok {
		return Condition{}, errdefs.InvalidRequest("operator for field %q must be a string", field)
	}
	op, err := ParseOperator(opText)
	if err != nil {
		return Condition{}, err
	}
	val, err := value.FromAny(v[2])
	if err != nil {
		return Condition{}, errdefs.WrapInvalidRequest(err, "value for field %q", field)
	}
	return Condition{Field: field, Op: op, Value: val}, nil
}

// isBareCondition recognizes ["field", "op", value] at the top level.
func isBareCondition(v []any) bool {
	if len(v) != 3 {
		return false
	}
	field, ok := v[0].(string)
	if !ok {
		return false
	}
	if _, isConn := ParseConnective(field); isConn {
		return false
	}
	_, opIsString := v[1].(string)
	return opIsString
}
