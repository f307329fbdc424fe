package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Clone deep-copies a JSON-shaped value into the kernel's value model:
// objects become map[string]any, lists []any, and numbers float64. Integers
// that float64 cannot hold exactly stay json.Number.
// Values outside that model are returned unchanged.
func Clone(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Clone(item)
		}
		return out
	case string, bool, float64:
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil && !exactFloat(i) {
			return val
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := rv.Int(); !exactFloat(i) {
			return json.Number(strconv.FormatInt(i, 10))
		}
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u > maxExactInt {
			return json.Number(strconv.FormatUint(u, 10))
		}
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Clone(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any(nil)
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Clone(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// ToValue converts any JSON-encodable Go value (including structs) into the
// kernel's value model.
func ToValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return Clone(out), nil
}

// maxExactInt is the largest integer magnitude float64 represents exactly.
const maxExactInt = 1 << 53

func exactFloat(i int64) bool { return i >= -maxExactInt && i <= maxExactInt }

// Decode converts a value-model value into dst, a pointer to a Go type.
func Decode(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// AsObject returns v as an object, reporting false when v is not one.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
