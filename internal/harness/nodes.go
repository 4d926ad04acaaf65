package harness

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tabula/internal/value"
)

// nodeValue converts a YAML node into a Value. Mapping keys keep document
// order, which a map[string]any round trip would lose.
func nodeValue(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case 0:
		return value.Null{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null{}, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		list := make(value.List, len(n.Content))
		for i, child := range n.Content {
			v, err := nodeValue(child)
			if err != nil {
				return nil, fmt.Errorf("line %d: item %d: %w", child.Line, i, err)
			}
			list[i] = v
		}
		return list, nil
	case yaml.MappingNode:
		return nodeRecord(n)
	case yaml.ScalarNode:
		return scalarValue(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

// nodeRecord converts a mapping node into a Record.
func nodeRecord(n *yaml.Node) (*value.Record, error) {
	if n.Kind == yaml.AliasNode {
		return nodeRecord(n.Alias)
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	rec := value.NewRecord()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: field names must be scalars", key.Line)
		}
		v, err := nodeValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key.Value, err)
		}
		rec.Set(key.Value, v)
	}
	return rec, nil
}

func scalarValue(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return value.Time(t), nil
	default:
		return value.Text(n.Value), nil
	}
}

// initialData converts the initial_data node into driver seed data.
func initialData(n *yaml.Node) (map[string][]*value.Record, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	data := make(map[string][]*value.Record)
	for i := 0; i+1 < len(n.Content); i += 2 {
		object, rows := n.Content[i].Value, n.Content[i+1]
		if rows.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("initial_data.%s: expected a list of records", object)
		}
		for j, row := range rows.Content {
			rec, err := nodeRecord(row)
			if err != nil {
				return nil, fmt.Errorf("initial_data.%s[%d]: %w", object, j, err)
			}
			data[object] = append(data[object], rec)
		}
	}
	return data, nil
}
