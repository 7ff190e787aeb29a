package fieldtype

import (
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// toList returns the elements of any slice or array value.
func toList(raw any) ([]any, bool) {
	if l, ok := raw.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// deserializeIDs turns raw input into a list of id strings. A bare string
// becomes a single-element list and objects contribute their "id" key.
func deserializeIDs(raw any) ([]any, error) {
	if raw == nil {
		return []any{}, nil
	}
	items, ok := toList(raw)
	if !ok {
		items = []any{raw}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			item = m["id"]
		}
		id, err := cast.ToStringE(item)
		if err != nil || strings.TrimSpace(id) == "" {
			return nil, types.Validationf("data", "item %d is not an id", i)
		}
		out = append(out, strings.TrimSpace(id))
	}
	return out, nil
}

// idList checks that value is a list of non-empty, distinct strings.
func idList(value any) ([]string, error) {
	items, ok := toList(value)
	if !ok {
		return nil, errData("value must be a list of ids, got %T", value)
	}
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id, ok := item.(string)
		if !ok || id == "" {
			return nil, errData("item %d must be a non-empty id string", i)
		}
		if seen[id] {
			return nil, errData("id %s appears more than once", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// copyList returns a shallow copy so callers cannot alias stored state.
func copyList(value any) (any, error) {
	items, ok := toList(value)
	if !ok {
		return value, nil
	}
	out := make([]any, len(items))
	copy(out, items)
	return out, nil
}
