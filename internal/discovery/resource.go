package discovery

import "fmt"

// nameField is the well-known key templates use for a resource's logical
// name, the field requested-name filtering compares against.
const nameField = "name"

// toResourceList coerces a rendered template's parsed output, or a callable
// artifact's direct return value, into the ordered resource list the
// response carries. Both yaml.Unmarshal(&any{}) and a
// callable's Go-native return can surface as []any, []map[string]any, or
// (if a template rendered a single object instead of a list) one bare map —
// the last is accepted as a one-resource list for template-author
// convenience.
func toResourceList(v any) ([]map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		return val, nil
	case []any:
		out := make([]map[string]any, 0, len(val))
		for i, item := range val {
			m, err := toResourceMap(item)
			if err != nil {
				return nil, fmt.Errorf("resource %d: %w", i, err)
			}
			out = append(out, m)
		}
		return out, nil
	case map[string]any:
		return []map[string]any{val}, nil
	case map[any]any:
		m, err := toResourceMap(val)
		if err != nil {
			return nil, err
		}
		return []map[string]any{m}, nil
	default:
		return nil, fmt.Errorf("rendered document is not a resource list or object (got %T)", v)
	}
}

// toResourceMap normalizes one resource entry, accepting the map[any]any
// shape yaml.v3 produces for mapping nodes whose keys aren't already
// strings.
func toResourceMap(v any) (map[string]any, error) {
	switch val := v.(type) {
	case map[string]any:
		return val, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a resource object, got %T", v)
	}
}

// filterByName keeps only resources whose "name" field is in requested.
// An empty requested set means "return all".
func filterByName(resources []map[string]any, requested []string) []map[string]any {
	if len(requested) == 0 {
		return resources
	}
	want := make(map[string]bool, len(requested))
	for _, n := range requested {
		want[n] = true
	}
	out := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		if name, ok := r[nameField].(string); ok && want[name] {
			out = append(out, r)
		}
	}
	return out
}
