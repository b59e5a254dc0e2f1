package sources

import (
	"context"
	"fmt"

	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/loader"
)

// Build constructs the instance.Source for one config.SourceConfig entry,
// dispatching on its Type. registry
// supplies the protocol/serializer plugin table for location-backed
// sources ("http", "file", "s3").
func Build(ctx context.Context, sc config.SourceConfig, registry *loader.Registry) (instance.Source, error) {
	switch sc.Type {
	case "inline":
		raw, err := rawInstances(sc.Config)
		if err != nil {
			return nil, fmt.Errorf("inline source: %w", err)
		}
		return NewInline(raw), nil

	case "http":
		url, ok := sc.Config["url"].(string)
		if !ok || url == "" {
			return nil, fmt.Errorf("http source: config.url is required")
		}
		serialization, _ := sc.Config["serialization"].(string)
		return NewLoaded(registry, loader.Location{Protocol: "http", Serialization: serialization, Path: url}), nil

	case "file":
		path, ok := sc.Config["path"].(string)
		if !ok || path == "" {
			return nil, fmt.Errorf("file source: config.path is required")
		}
		serialization, _ := sc.Config["serialization"].(string)
		return NewLoaded(registry, loader.Location{Protocol: "file", Serialization: serialization, Path: path}), nil

	case "s3":
		bucket, _ := sc.Config["bucket"].(string)
		key, _ := sc.Config["key"].(string)
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("s3 source: config.bucket and config.key are required")
		}
		serialization, _ := sc.Config["serialization"].(string)
		return NewLoaded(registry, loader.Location{
			Protocol:      "s3",
			Serialization: serialization,
			Path:          bucket + "/" + key,
		}), nil

	case "k8s":
		namespace, _ := sc.Config["namespace"].(string)
		labelSelector, _ := sc.Config["label_selector"].(string)
		kind := K8sKindConfigMap
		if k, ok := sc.Config["kind"].(string); ok && k == string(K8sKindSecret) {
			kind = K8sKindSecret
		}
		return NewK8sFromInCluster(namespace, labelSelector, kind)

	default:
		return nil, fmt.Errorf("unknown source type %q", sc.Type)
	}
}

func rawInstances(cfg map[string]any) ([]map[string]any, error) {
	raw, ok := cfg["instances"]
	if !ok {
		return nil, fmt.Errorf("config.instances is required")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("config.instances must be a list")
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("config.instances[%d] must be an object", i)
		}
		out = append(out, m)
	}
	return out, nil
}
