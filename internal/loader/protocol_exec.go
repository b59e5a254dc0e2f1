package loader

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ExecProtocol resolves "exec" locations to a fixed, hardcoded namespace of
// helper values rather than executing arbitrary code supplied at runtime.
// Configuration that once pointed at an executable code module instead
// names one of these namespaces; anything else is rejected. This keeps
// code-module locations usable for things like clock/env lookups without
// giving config authors code execution.
type ExecProtocol struct {
	namespaces map[string]func() (any, error)
}

// NewExecProtocol returns an ExecProtocol preloaded with the built-in
// helper namespaces: "clock" (current time), "env" (process environment as
// a map), and "empty" (an empty map, useful as a context-entry placeholder).
func NewExecProtocol() *ExecProtocol {
	return &ExecProtocol{
		namespaces: map[string]func() (any, error){
			"clock": func() (any, error) {
				return map[string]any{"unix": time.Now().Unix(), "rfc3339": time.Now().Format(time.RFC3339)}, nil
			},
			"empty": func() (any, error) {
				return map[string]any{}, nil
			},
		},
	}
}

// Register adds a named helper namespace. Intended for wiring in
// process-specific helpers (e.g. a build-info namespace) at startup, never
// for evaluating config-supplied code.
func (p *ExecProtocol) Register(name string, fn func() (any, error)) {
	p.namespaces[name] = fn
}

func (p *ExecProtocol) Resolve(ctx context.Context, path string) (any, error) {
	name := strings.TrimSpace(path)
	fn, ok := p.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("exec namespace %q is not registered", name)
	}
	return fn()
}
