package fields

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/ssargent/freyjadoc/pkg/model"
)

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, model.Validation("%q is not an integer", n.String())
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, model.Validation("%q is not an integer", n)
		}
		return i, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, model.Validation("%d overflows int64", u)
		}
		return int64(u), nil
	}
	return 0, model.Validation("value of type %T is not an integer", v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, model.Validation("%v is not an integer", f)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, model.Validation("%v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, model.Validation("%q is not a number", n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, model.Validation("%q is not a number", n)
		}
		return f, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, model.Validation("value of type %T is not a number", v)
	}
	return float64(i), nil
}

// isSlice reports whether v is a non-nil slice value.
func isSlice(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Slice
}

// isStringMap reports whether v is a map with string keys.
func isStringMap(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}
