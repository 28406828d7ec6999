package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/darmiel/idtoken/internal/core"
)

func evaluateLeaf(cond core.Condition, attributes map[string]any) (bool, string) {
	val, exists := attributes[cond.Key]

	switch cond.Operator {
	case core.OpExists:
		if !exists {
			return false, fmt.Sprintf("attribute '%s' does not exist", cond.Key)
		}
		return true, ""

	case core.OpNotExists:
		if exists {
			return false, fmt.Sprintf("attribute '%s' exists", cond.Key)
		}
		return true, ""
	}

	if !exists {
		return false, fmt.Sprintf("attribute '%s' missing", cond.Key)
	}

	switch cond.Operator {
	case core.OpEqual:
		if !deepEqual(val, cond.Value) {
			return false, fmt.Sprintf("expected '%v' to equal '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpNotEqual:
		if deepEqual(val, cond.Value) {
			return false, fmt.Sprintf("expected '%v' to not equal '%v'", val, cond.Value)
		}
		return true, ""

	case core.OpContains:
		// check if {val} contains {cond.Value}
		// e.g. "uid contains "@acme.com"
		if !contains(val, cond.Value) {
			return false, fmt.Sprintf("value '%v' does not contain '%v'", val, cond.Value)
		}
		return true, fmt.Sprintf("value '%v' contains '%v'", val, cond.Value)

	case core.OpIn:
		// check if {cond.Value} contains {val}
		// e.g. "tenant IN ['tenant-a', 'tenant-b']"
		if !contains(cond.Value, val) {
			return false, fmt.Sprintf("value '%v' not in '%v'", val, cond.Value)
		}
		return true, fmt.Sprintf("value '%v' found in list '%v'", val, cond.Value)

	case core.OpNotIn:
		if contains(cond.Value, val) {
			return false, fmt.Sprintf("value '%v' found in '%v'", val, cond.Value)
		}
		return true, ""
	}

	return false, fmt.Sprintf("unknown operator '%s' in condition", cond.Operator)
}

// deepEqual compares claim values. JSON numbers decode as float64 and YAML
// integers as int or uint64, so numbers are compared by value.
func deepEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func contains(container, item any) bool {
	// handle string contains substring
	if str, ok := container.(string); ok {
		if subStr, ok := item.(string); ok {
			return strings.Contains(str, subStr)
		}
	}

	// handle slice/array contains
	v := reflect.ValueOf(container)
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		for i := 0; i < v.Len(); i++ {
			if deepEqual(v.Index(i).Interface(), item) {
				return true
			}
		}
	}

	return false
}
