package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/tabula/internal/value"
)

// Item is one element of a filter Expression.
//
// Item types:
//   - Condition: field <op> value
//   - Connective: And / Or, only between two operands
//   - Group: a nested Expression treated as one operand
type Item interface {
	filterItem()
}

// Expression is an ordered sequence of filter items.
// A nil or empty Expression matches everything.
type Expression []Item

// Condition compares one record field against a value.
//
// Example:
//
//	Condition{Field: "age", Op: OpGt, Value: value.Int(28)}
//
// An absent field reads as value.Null.
type Condition struct {
	Field string
	Op    Operator
	Value value.Value
}

func (Condition) filterItem() {}

// Connective joins the operands on either side of it.
type Connective int

const (
	And Connective = iota + 1
	Or
)

func (Connective) filterItem() {}

func (c Connective) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	}
	return fmt.Sprintf("connective(%d)", int(c))
}

// Group is a nested expression evaluated as a single boolean operand.
type Group struct {
	Items Expression
}

func (Group) filterItem() {}

// C builds a Condition.
func C(field string, op Operator, v value.Value) Condition {
	return Condition{Field: field, Op: op, Value: v}
}

// Nest builds a Group from items.
func Nest(items ...Item) Group {
	return Group{Items: Expression(items)}
}

// ParseConnective parses "and"/"or" case-insensitively.
func ParseConnective(s string) (Connective, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "and":
		return And, true
	case "or":
		return Or, true
	}
	return 0, false
}

// String renders the expression for logs, e.g. `age > 28 and (role = "admin")`.
func (e Expression) String() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		switch it := item.(type) {
		case Condition:
			parts = append(parts, it.String())
		case *Condition:
			parts = append(parts, it.String())
		case Connective:
			parts = append(parts, it.String())
		case Group:
			parts = append(parts, "("+it.Items.String()+")")
		case *Group:
			parts = append(parts, "("+it.Items.String()+")")
		default:
			parts = append(parts, fmt.Sprintf("<%T>", item))
		}
	}
	return strings.Join(parts, " ")
}

func (c Condition) String() string {
	rendered, err := value.MarshalValue(c.Value)
	if err != nil {
		rendered = []byte(value.Stringify(c.Value))
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, rendered)
}
