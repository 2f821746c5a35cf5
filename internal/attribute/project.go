// Package attribute projects requested issue fields into flat column
// values.
package attribute

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/jira-metrics/internal/model"
)

// displayKeys are tried in order when flattening an object. Jira renders
// users, options, versions and statuses with one of these.
var displayKeys = []string{"name", "value", "displayName", "key"}

// Project looks up every requested attribute in fields and returns the
// flattened values keyed by label. Missing fields project to "".
func Project(fields map[string]any, attrs []model.Attribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		v, ok := Lookup(fields, a.Field)
		if !ok {
			out[a.Label] = ""
			continue
		}
		out[a.Label] = Format(v)
	}
	return out
}

// Lookup resolves a dotted path against a decoded JSON object. Path
// segments select object keys or, on arrays, zero-based indexes. A key
// containing dots matches as a whole before the path is split. The second
// result is false when any segment is absent.
func Lookup(fields map[string]any, path string) (any, bool) {
	if fields == nil || path == "" {
		return nil, false
	}
	if v, ok := fields[path]; ok {
		return v, true
	}

	var cur any = fields
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Format renders a decoded JSON value as a concise string. Scalars pass
// through, objects collapse to their display name when they have one,
// arrays become a JSON list of their formatted elements.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int, int64, int32:
		return fmt.Sprint(val)
	case map[string]any:
		for _, k := range displayKeys {
			if s, ok := val[k].(string); ok && s != "" {
				return s
			}
		}
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	case []any:
		if len(val) == 0 {
			return ""
		}
		parts := make([]string, 0, len(val))
		for _, e := range val {
			parts = append(parts, Format(e))
		}
		b, err := json.Marshal(parts)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
