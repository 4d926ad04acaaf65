package value

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"
)

// FromAny converts decoded Go data (from encoding/json, yaml.v3 or CUE
// export) into a Value. Maps without an inherent order get their keys
// sorted so conversion is deterministic.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return Clone(val), nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return ParseNumber(val.String())
	case time.Time:
		return Time(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = ev
		}
		return list, nil
	case []Value:
		return NewList(val...), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		rec := NewRecord()
		for _, k := range keys {
			ev, err := FromAny(val[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			rec.Set(k, ev)
		}
		return rec, nil
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, elem := range val {
			converted[fmt.Sprint(k)] = elem
		}
		return FromAny(converted)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// RecordFromAny converts a decoded map into a Record.
func RecordFromAny(v any) (*Record, error) {
	converted, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	rec, ok := converted.(*Record)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %s", KindOf(converted))
	}
	return rec, nil
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Float(float64(u)), nil
	}
	return Int(int64(u)), nil
}
