package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fleetxds/control-plane/internal/instance/model"
)

// registerBuiltins installs the small fixed library of modifiers shipped
// with the control plane. Deployments name these by string in
// config.Config.Modifiers / GlobalModifiers; anything else must be
// registered by the embedding program before startup.
func registerBuiltins(r *Registry) {
	r.RegisterPerInstance("lowercase_name", PerInstanceFunc(lowercaseName))
	r.RegisterPerInstance("require_name", PerInstanceFunc(requireName))
	r.RegisterGlobal("dedupe_by_name", GlobalFunc(dedupeByName))
	r.RegisterGlobal("sort_by_name", GlobalFunc(sortByName))
}

// lowercaseName lowercases the well-known "name" key, matching how proxies
// treat resource names case-insensitively in some deployments.
func lowercaseName(inst model.Instance) (model.Instance, error) {
	name, ok := inst["name"].(string)
	if !ok || name == "" {
		return inst, nil
	}
	out := make(model.Instance, len(inst))
	for k, v := range inst {
		out[k] = v
	}
	out["name"] = strings.ToLower(name)
	return out, nil
}

// requireName drops instances missing the well-known "name" key by
// returning an error, which causes the poller to drop just this instance.
func requireName(inst model.Instance) (model.Instance, error) {
	name, ok := inst["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("instance missing required \"name\" key")
	}
	return inst, nil
}

// dedupeByName keeps the first instance seen for each "name" value,
// preserving input order.
func dedupeByName(scope string, instances []model.Instance) ([]model.Instance, error) {
	seen := make(map[string]bool, len(instances))
	out := make([]model.Instance, 0, len(instances))
	for _, inst := range instances {
		name, _ := inst["name"].(string)
		if name != "" && seen[name] {
			continue
		}
		if name != "" {
			seen[name] = true
		}
		out = append(out, inst)
	}
	return out, nil
}

// sortByName orders a scope's instances by the "name" key. Instances
// lacking a name sort after named ones, in their original relative order.
func sortByName(scope string, instances []model.Instance) ([]model.Instance, error) {
	out := make([]model.Instance, len(instances))
	copy(out, instances)
	sort.SliceStable(out, func(i, j int) bool {
		ni, _ := out[i]["name"].(string)
		nj, _ := out[j]["name"].(string)
		if ni == "" {
			return false
		}
		if nj == "" {
			return true
		}
		return ni < nj
	})
	return out, nil
}
