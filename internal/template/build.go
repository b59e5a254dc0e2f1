package template

import (
	"context"
	"fmt"
	"text/template"

	"github.com/fleetxds/control-plane/internal/loader"
)

// BuildRegistry compiles every (version, resource_type) template named in
// cfg.Templates, failing fast on the first template that doesn't
// compile: an artifact is immutable once published, so a broken template
// must be caught at startup, not mid-request.
func BuildRegistry(ctx context.Context, cfg map[string]map[string]loader.Location, registry *loader.Registry, funcs template.FuncMap) (*Registry, error) {
	reg := NewRegistry()
	for version, byType := range cfg {
		for resourceType, loc := range byType {
			name := fmt.Sprintf("%s/%s", version, resourceType)
			artifact, err := FromLocation(ctx, registry, name, loc, funcs)
			if err != nil {
				return nil, fmt.Errorf("compile template %s: %w", name, err)
			}
			reg.Add(version, resourceType, artifact)
		}
	}
	return reg, nil
}
