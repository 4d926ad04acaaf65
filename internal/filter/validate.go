package filter

import (
	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/value"
)

// Validate checks an expression's structure without a record: connective
// placement, operator validity, and list operands for in/nin. Drivers call
// it before scanning so a malformed filter fails even on an empty table.
//
// Kind mismatches between a field and a comparison value depend on the data
// and are only detected by Evaluate.
func Validate(expr Expression) error {
	v := &validator{}
	return v.validate(expr)
}

type validator struct{}

func (v *validator) validate(expr Expression) error {
	operands := 0
	pending := false

	for _, item := range expr {
		switch it := item.(type) {
		case Connective:
			if err := checkConnective(it, operands == 0, pending); err != nil {
				return err
			}
			pending = true
		case Condition:
			if err := v.validateCondition(it); err != nil {
				return err
			}
			operands++
			pending = false
		case *Condition:
			if err := v.validateCondition(*it); err != nil {
				return err
			}
			operands++
			pending = false
		case Group:
			if err := v.validate(it.Items); err != nil {
				return err
			}
			operands++
			pending = false
		case *Group:
			if err := v.validate(it.Items); err != nil {
				return err
			}
			operands++
			pending = false
		default:
			return errdefs.InvalidRequest("unsupported filter item %T", item)
		}
	}

	if pending {
		return errdefs.InvalidRequest("filter cannot end with a connective")
	}
	return nil
}

func (v *validator) validateCondition(c Condition) error {
	if c.Field == "" {
		return errdefs.InvalidRequest("condition has an empty field name")
	}
	if !c.Op.Valid() {
		return errdefs.InvalidRequest("unsupported operator %s", c.Op)
	}
	if c.Op == OpIn || c.Op == OpNin {
		if _, err := c.listValue(); err != nil {
			return err
		}
	}
	if (c.Op == OpGt || c.Op == OpGte || c.Op == OpLt || c.Op == OpLte) &&
		!value.IsNull(c.Value) && !value.Orderable(value.KindOf(c.Value)) {
		return errdefs.InvalidRequest("operator %s on field %q needs a number, text or time value, got %s",
			c.Op, c.Field, value.KindOf(c.Value))
	}
	return nil
}
