package form

import (
	"fmt"
	"strconv"
)

// IsEmptyValue reports whether an answer value counts as unanswered: nil,
// the empty string, or an empty value list. Zero numbers and false booleans
// are real answers.
func IsEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// ValueToString coerces a stored answer to text for substring matching.
// Numbers render without a trailing ".0" when integral, matching the way
// the values round-trip through JSON.
func ValueToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		out := ""
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += ValueToString(item)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}
