package query

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/roach88/tabula/internal/errdefs"
	"github.com/roach88/tabula/internal/filter"
)

// FromAny decodes a query-shaped mapping:
//
//	{
//	  "filters": [["age", ">", 28]],   // or "filter"
//	  "sort":    [["age", "desc"], "name", "-created_at", "role asc"],
//	  "skip":    10,
//	  "limit":   5,                    // or "top"
//	  "fields":  ["id", "name"]
//	}
//
// Unknown keys are rejected so typos do not silently widen a query.
func FromAny(raw any) (*Query, error) {
	if raw == nil {
		return &Query{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errdefs.InvalidRequest("query must be a mapping, got %T", raw)
	}

	q := &Query{}
	for key, v := range m {
		var err error
		switch key {
		case "filters", "filter":
			q.Filter, err = filter.FromAny(v)
		case "sort":
			q.Sort, err = decodeSort(v)
		case "skip":
			if v == nil {
				continue
			}
			q.Skip, err = toInt(key, v)
		case "limit", "top":
			if v == nil {
				continue
			}
			var n int
			n, err = toInt(key, v)
			q.Limit = &n
		case "fields":
			q.Fields, err = toStrings(key, v)
		default:
			err = errdefs.InvalidRequest("unknown query key %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseJSON decodes a JSON query object.
func ParseJSON(data []byte) (*Query, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Query{}, nil
	}
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// CountFilter accepts either a bare filter expression or a query-shaped
// mapping holding one, and returns the filter.
func CountFilter(raw any) (filter.Expression, error) {
	if m, ok := raw.(map[string]any); ok {
		if v, has := m["filters"]; has {
			return filter.FromAny(v)
		}
		if v, has := m["filter"]; has {
			return filter.FromAny(v)
		}
		return nil, nil
	}
	return filter.FromAny(raw)
}

// ParseSort parses a compact sort spec such as "age:desc,name" or "-age,name asc".
func ParseSort(spec string) ([]SortKey, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = strings.Replace(strings.TrimSpace(p), ":", " ", 1)
	}
	return decodeSort(items)
}

func decodeSort(raw any) ([]SortKey, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if s, isString := raw.(string); isString {
			return ParseSort(s)
		}
		return nil, errdefs.InvalidRequest("sort must be a list, got %T", raw)
	}

	keys := make([]SortKey, 0, len(items))
	for _, item := range items {
		key, err := decodeSortKey(item)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeSortKey(item any) (SortKey, error) {
	switch v := item.(type) {
	case string:
		fields := strings.Fields(v)
		switch len(fields) {
		case 1:
			if name, desc := strings.CutPrefix(fields[0], "-"); desc {
				return SortKey{Field: name, Direction: Desc}, nil
			}
			return SortKey{Field: fields[0], Direction: Asc}, nil
		case 2:
			dir, err := ParseDirection(fields[1])
			if err != nil {
				return SortKey{}, err
			}
			return SortKey{Field: fields[0], Direction: dir}, nil
		}
		return SortKey{}, errdefs.InvalidRequest("invalid sort key %q", v)
	case []any:
		if len(v) == 0 || len(v) > 2 {
			return SortKey{}, errdefs.InvalidRequest("sort pair needs [field, direction], got %d elements", len(v))
		}
		field, ok := v[0].(string)
		if !ok {
			return SortKey{}, errdefs.InvalidRequest("sort field must be a string, got %T", v[0])
		}
		dirText := ""
		if len(v) == 2 {
			if dirText, ok = v[1].(string); !ok {
				return SortKey{}, errdefs.InvalidRequest("sort direction for %q must be a string", field)
			}
		}
		dir, err := ParseDirection(dirText)
		if err != nil {
			return SortKey{}, err
		}
		return SortKey{Field: field, Direction: dir}, nil
	}
	return SortKey{}, errdefs.InvalidRequest("unsupported sort key %T", item)
}

func toInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			break
		}
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	return 0, errdefs.InvalidRequest("%s must be an integer, got %v", key, v)
}

func toStrings(key string, v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case string:
		var out []string
		for _, f := range strings.Split(list, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out, nil
	case []any:
		out := make([]string, len(list))
		for i, elem := range list {
			s, ok := elem.(string)
			if !ok {
				return nil, errdefs.InvalidRequest("%s[%d] must be a string", key, i)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, errdefs.InvalidRequest("%s must be a list of strings", key)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errdefs.WrapInvalidRequest(err, "decode query")
	}
	return raw, nil
}
