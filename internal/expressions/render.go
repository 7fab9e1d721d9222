package expressions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Render substitutes {key} placeholders in a value using the state snapshot.
// Strings are scanned for every state key; slices and maps are walked
// recursively. Placeholders without a matching state key stay verbatim, so
// rendering is idempotent when no key matches.
func Render(value any, state map[string]any) any {
	switch v := value.(type) {
	case string:
		return RenderString(v, state)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Render(item, state)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Render(item, state)
		}
		return out
	default:
		return value
	}
}

// RenderString replaces every {key} occurrence in s with the string form of
// state[key].
func RenderString(s string, state map[string]any) string {
	if !strings.ContainsRune(s, '{') {
		return s
	}
	for key, value := range state {
		placeholder := "{" + key + "}"
		if strings.Contains(s, placeholder) {
			s = strings.ReplaceAll(s, placeholder, Stringify(value))
		}
	}
	return s
}

// RenderArgs renders a step's args map, returning a fresh map.
// A nil input yields an empty map.
func RenderArgs(args map[string]any, state map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = Render(v, state)
	}
	return out
}

// Stringify converts a state value to its placeholder substitution form.
// Composite values are JSON-encoded; scalars use their natural formatting.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
