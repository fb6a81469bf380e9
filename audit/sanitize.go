// api/audit/sanitize.go
package audit

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Sanitize returns a copy of payload with every denylisted key removed at
// any depth. Keys match case-insensitively, ignoring '_' and '-'. Values that
// are neither maps, slices nor scalars are normalized through JSON first.
func Sanitize(payload interface{}, denylist []string) interface{} {
	deny := make(map[string]struct{}, len(denylist))
	for _, key := range denylist {
		deny[normalizeKey(key)] = struct{}{}
	}
	return sanitize(payload, deny)
}

func sanitize(value interface{}, deny map[string]struct{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, nested := range v {
			if _, denied := deny[normalizeKey(key)]; denied {
				continue
			}
			out[key] = sanitize(nested, deny)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = sanitize(nested, deny)
		}
		return out
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return v
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil
		}
		return sanitize(generic, deny)
	}
	return value
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("_", "", "-", "").Replace(key)
}
