// Package transform implements the per-instance and global modifiers
// applied to instances at ingestion time. Transforms are pure with respect to the store: they never
// write back to it, only return the instances (or instance) they produce.
package transform

import (
	"fmt"

	"github.com/fleetxds/control-plane/internal/instance/model"
)

// PerInstance maps one instance to one instance. Returning an error drops
// the instance from the scope; it never aborts the
// whole poll cycle.
type PerInstance interface {
	Apply(inst model.Instance) (model.Instance, error)
}

// Global maps an entire scope's instance set to a new set. Global
// transforms run before per-instance transforms. Returning an
// error rolls back the whole scope to what it held before this transform:
// a partially-applied scope-wide rewrite has no well-defined partial result.
type Global interface {
	Apply(scope string, instances []model.Instance) ([]model.Instance, error)
}

// PerInstanceFunc adapts a function to PerInstance.
type PerInstanceFunc func(model.Instance) (model.Instance, error)

func (f PerInstanceFunc) Apply(inst model.Instance) (model.Instance, error) { return f(inst) }

// GlobalFunc adapts a function to Global.
type GlobalFunc func(string, []model.Instance) ([]model.Instance, error)

func (f GlobalFunc) Apply(scope string, instances []model.Instance) ([]model.Instance, error) {
	return f(scope, instances)
}

// Registry is the named modifier plugin table.
type Registry struct {
	perInstance map[string]PerInstance
	global      map[string]Global
}

// NewRegistry returns a Registry preloaded with the built-in modifiers.
func NewRegistry() *Registry {
	r := &Registry{
		perInstance: make(map[string]PerInstance),
		global:      make(map[string]Global),
	}
	registerBuiltins(r)
	return r
}

// RegisterPerInstance adds a named per-instance modifier.
func (r *Registry) RegisterPerInstance(name string, t PerInstance) {
	r.perInstance[name] = t
}

// RegisterGlobal adds a named global (scope-wide) modifier.
func (r *Registry) RegisterGlobal(name string, t Global) {
	r.global[name] = t
}

// PerInstance looks up a registered per-instance modifier by name.
func (r *Registry) PerInstance(name string) (PerInstance, error) {
	t, ok := r.perInstance[name]
	if !ok {
		return nil, fmt.Errorf("transform: no per-instance modifier named %q", name)
	}
	return t, nil
}

// Global looks up a registered global modifier by name.
func (r *Registry) Global(name string) (Global, error) {
	t, ok := r.global[name]
	if !ok {
		return nil, fmt.Errorf("transform: no global modifier named %q", name)
	}
	return t, nil
}

// Error wraps a transform failure with enough context for the poller to log
// and recover from it.
type Error struct {
	Modifier string
	Scope    string
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %q (scope %s): %v", e.Modifier, e.Scope, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }
