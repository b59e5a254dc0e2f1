// Package matcher implements the node matcher: selecting
// which in-memory instances feed a given discovery request, based on the
// requesting proxy's node descriptor.
package matcher

import (
	"fmt"
	"strings"

	"github.com/fleetxds/control-plane/internal/instance"
)

// Wildcard is the literal token that matches any non-empty value on either
// side of a node-match comparison.
const Wildcard = "*"

// Config controls matching.
type Config struct {
	Enabled   bool
	SourceKey string
	NodeKey   string
}

// Select returns the subset of scope's instances (plus the universal
// default scope, already merged by instance.Store.Get) that match node's
// descriptor, preserving input order.
func Select(store *instance.Store, node map[string]any, resourceType string, cfg Config) []instance.Instance {
	candidates := store.Get(resourceType)

	if !cfg.Enabled {
		return candidates
	}

	nodeValue := extract(node, cfg.NodeKey)
	out := make([]instance.Instance, 0, len(candidates))
	for _, inst := range candidates {
		sourceValue := extract(map[string]any(inst), cfg.SourceKey)
		if matches(sourceValue, nodeValue) {
			out = append(out, inst)
		}
	}
	return out
}

// matches reports whether a source value feeds a node value: equal values
// match; either side being or containing the literal wildcard matches;
// set-like values that intersect match.
func matches(source, node any) bool {
	if isWildcard(source) || isWildcard(node) {
		return !isEmpty(source) || !isEmpty(node)
	}
	if source == nil || node == nil {
		return false
	}

	sourceList, sourceIsList := asStringList(source)
	nodeList, nodeIsList := asStringList(node)
	if sourceIsList || nodeIsList {
		if !sourceIsList {
			sourceList = []string{toString(source)}
		}
		if !nodeIsList {
			nodeList = []string{toString(node)}
		}
		return intersects(sourceList, nodeList)
	}

	return toString(source) == toString(node)
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

func isWildcard(v any) bool {
	switch val := v.(type) {
	case string:
		return val == Wildcard
	case []string:
		for _, s := range val {
			if s == Wildcard {
				return true
			}
		}
	case []any:
		for _, s := range val {
			if str, ok := s.(string); ok && str == Wildcard {
				return true
			}
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

func asStringList(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, toString(item))
		}
		return out, true
	default:
		return nil, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// extract follows a dotted path (e.g. "node.metadata.cluster") into a
// nested map[string]any, returning nil if any segment is missing or not a
// map.
func extract(data map[string]any, path string) any {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}
