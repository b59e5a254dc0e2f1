// Package template implements the template registry and the
// template context: compiling and retaining per-(proxy
// version, resource type) templates, and maintaining the named values fed
// to every template invocation, including scheduled refresh.
package template

import (
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/fleetxds/control-plane/internal/loader"
)

// Kind distinguishes the two template execution strategies: a
// text-templating-language artifact that must be rendered
// then parsed as a structured document, and a callable artifact that is
// invoked directly and returns structured data, skipping the render+parse
// round trip on hot paths.
type Kind int

const (
	KindText Kind = iota
	KindCallable
)

// Callable is the invocable form a code-module template artifact takes.
// Callables are drawn from a fixed, trusted library registered at startup,
// never compiled from configuration at request time.
type Callable func(ctx map[string]any) (any, error)

// Artifact is one compiled template: its compiled form, source bytes, a
// checksum of those bytes (folded into the request fingerprint), and the
// set of free identifiers it references (used to prune the template
// context).
type Artifact struct {
	ProxyVersion string
	ResourceType string
	Kind         Kind
	Source       []byte
	Checksum     string
	FreeIdents   map[string]bool
	Tmpl         *template.Template
	Call         Callable
}

// Compile parses source as a text/template, computing its checksum and
// free-identifier set.
func Compile(name string, source []byte, extraFuncs template.FuncMap) (*Artifact, error) {
	funcs := sprig.TxtFuncMap()
	for k, v := range Helpers() {
		funcs[k] = v
	}
	for k, v := range extraFuncs {
		funcs[k] = v
	}

	tmpl, err := template.New(name).Funcs(funcs).Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	idents, err := freeIdentifiers(string(source))
	if err != nil {
		return nil, fmt.Errorf("extract free identifiers for %q: %w", name, err)
	}

	return &Artifact{
		Kind:       KindText,
		Source:     source,
		Checksum:   checksum(source),
		FreeIdents: idents,
		Tmpl:       tmpl,
	}, nil
}

// CompileCallable wraps a fixed Go function as a callable artifact. source
// is a human-readable label (not executed) used only to derive a stable
// checksum contribution, since callables have no text body to hash.
func CompileCallable(label string, call Callable) *Artifact {
	src := []byte(label)
	return &Artifact{
		Kind:     KindCallable,
		Source:   src,
		Checksum: checksum(src),
		Call:     call,
	}
}

// FromLocation compiles an Artifact by resolving loc's compiled-template
// form through registry.LoadBytes, matching how internal/loader exposes the
// raw source bytes it fetched (loader.CompiledTemplate layers FuncMap
// concerns the template package doesn't need at this layer).
func FromLocation(ctx context.Context, registry *loader.Registry, name string, loc loader.Location, funcs template.FuncMap) (*Artifact, error) {
	source, err := registry.LoadBytes(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", loc, err)
	}
	return Compile(name, source, funcs)
}
