package conditions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONPathInterpreter evaluates expressions of the form `path` or
// `path == literal` against the result data. A bare path is truthy when
// the value exists and is not false, zero or empty.
type JSONPathInterpreter struct{}

func (j *JSONPathInterpreter) Evaluate(expression string, data map[string]any) (bool, error) {
	doc, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("cannot marshal result data: %w", err)
	}

	path, want, hasComparison := splitComparison(expression)

	value := gjson.GetBytes(doc, path)

	if hasComparison {
		return compareLiteral(value, want), nil
	}

	return truthy(value), nil
}

func splitComparison(expression string) (path, literal string, ok bool) {
	idx := strings.Index(expression, "==")
	if idx < 0 {
		return strings.TrimSpace(expression), "", false
	}

	path = strings.TrimSpace(expression[:idx])
	literal = strings.TrimSpace(expression[idx+2:])
	literal = strings.Trim(literal, `"'`)

	return path, literal, true
}

func compareLiteral(value gjson.Result, want string) bool {
	if !value.Exists() {
		return false
	}

	return value.String() == want
}

func truthy(value gjson.Result) bool {
	switch value.Type {
	case gjson.False, gjson.Null:
		return false
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != ""
	case gjson.True:
		return true
	default:
		return value.Exists()
	}
}
