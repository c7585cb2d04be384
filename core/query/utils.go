package query

import (
	"fmt"
	"strconv"
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to i.
func Int64Ptr(i int64) *int64 {
	return &i
}

// ToFloat64 converts numeric values and numeric strings to float64.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case []byte:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt64 converts values read back from a driver into an int64. Floats are truncated.
func ToInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		return int64(val), true
	case []byte:
		i, err := strconv.ParseInt(string(val), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToString renders a scalar the way it is stored in a text column. nil yields "".
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(val)
	}
}
