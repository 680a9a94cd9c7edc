// Package jsonsafe converts arbitrary values into shapes that survive
// encoding/json without error. It is used for the audit snapshots the
// engine keeps of operation arguments and response payloads; values it
// cannot represent are reduced to strings rather than dropped.
package jsonsafe

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// maxDepth bounds recursion so cyclic or pathologically nested values
// degrade to strings instead of overflowing the stack.
const maxDepth = 8

// Sanitize returns a JSON-safe copy of v. Scalars, strings, maps with
// stringable keys, slices, arrays, and JSON-marshalable structs pass
// through (recursively sanitized); everything else falls back to its
// fmt representation.
func Sanitize(v any) any {
	return sanitize(v, 0)
}

func sanitize(v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth >= maxDepth {
		// %T rather than %v: formatting a cyclic container would
		// recurse just like we would.
		return fmt.Sprintf("%T(truncated)", v)
	}

	switch t := v.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case time.Duration:
		return t.String()
	case error:
		return t.Error()
	case []byte:
		return string(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitize(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = sanitize(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			out[key] = sanitize(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Struct:
		// Round-trip through encoding/json keeps field names and tags.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return decoded
	default:
		// Funcs, channels, unsafe pointers, complex numbers.
		return fmt.Sprintf("%v", v)
	}
}
