// Package sources implements instance.Source for each pluggable source
// type: inline literal config, polled HTTP/file documents, S3 objects, and
// labeled Kubernetes objects.
package sources

import (
	"context"
	"fmt"

	"github.com/fleetxds/control-plane/internal/instance"
)

// Inline is a source whose instances are supplied directly in configuration
// rather than fetched from anywhere. Useful for static scopes and tests.
type Inline struct {
	Instances []instance.Instance
}

// NewInline builds an Inline source from already-decoded instance data, as
// produced by decoding config.SourceConfig.Config's "instances" key.
func NewInline(raw []map[string]any) *Inline {
	instances := make([]instance.Instance, 0, len(raw))
	for _, m := range raw {
		instances = append(instances, instance.Instance(m))
	}
	return &Inline{Instances: instances}
}

func (s *Inline) Get(ctx context.Context) ([]instance.Instance, error) {
	out := make([]instance.Instance, len(s.Instances))
	copy(out, s.Instances)
	return out, nil
}

// asInstanceList coerces a decoded structured document into an instance
// list. Accepts either a top-level list, or a map with an "instances" key
// holding a list — both shapes appear across the source-config pack.
func asInstanceList(v any) ([]instance.Instance, error) {
	switch val := v.(type) {
	case []any:
		return coerceList(val)
	case map[string]any:
		if inner, ok := val["instances"]; ok {
			return asInstanceList(inner)
		}
		return nil, fmt.Errorf("decoded document has no \"instances\" key")
	default:
		return nil, fmt.Errorf("decoded document is neither a list nor a map with \"instances\"")
	}
}

func coerceList(items []any) ([]instance.Instance, error) {
	out := make([]instance.Instance, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("instance %d is not an object", i)
		}
		out = append(out, instance.Instance(m))
	}
	return out, nil
}
