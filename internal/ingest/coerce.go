package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a loosely-typed field value to a float64. Strings are
// trimmed and parsed; json.Number is unwrapped; every numeric Go type is
// widened. Anything else — nil, booleans, objects, NaN, infinities,
// unparseable strings — coerces to 0. Coerce never panics.
func Coerce(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		f, _ = x.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceString converts a field value to its string form, with numbers
// rendered the way the exports wrote them (no exponent for integral values).
// nil coerces to "".
func CoerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
