package builder

import (
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// mergeSorted sets every entry of src on dst. Plain maps carry no order,
// so new keys are appended in sorted key order.
func mergeSorted[V any](dst *orderedmap.OrderedMap[string, V], src map[string]V) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dst.Set(k, src[k])
	}
}

// toMap copies an ordered map into a plain map.
func toMap[V any](m *orderedmap.OrderedMap[string, V]) map[string]V {
	out := make(map[string]V, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		out[p.Key] = p.Value
	}
	return out
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
