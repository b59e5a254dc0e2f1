package loader

import (
	"fmt"
	"text/template"
)

// CompiledTemplate wraps a parsed text/template alongside its source, for
// callers that need to re-derive things like a content checksum or the set
// of free identifiers the template references (internal/template layers
// that on top of this).
type CompiledTemplate struct {
	Name   string
	Source []byte
	Tmpl   *template.Template
}

// TemplateSerializer compiles fetched bytes as a text/template. Funcs is
// consulted at Decode time so callers can install a fresh FuncMap (e.g. one
// bound to request-scoped helpers) without re-registering the serializer.
type TemplateSerializer struct {
	Name  string
	Funcs func() template.FuncMap
}

// NewTemplateSerializer returns a TemplateSerializer compiling templates
// under name, with funcs supplying the FuncMap for each compilation.
func NewTemplateSerializer(name string, funcs func() template.FuncMap) *TemplateSerializer {
	return &TemplateSerializer{Name: name, Funcs: funcs}
}

func (s *TemplateSerializer) Decode(data []byte) (any, error) {
	tmpl := template.New(s.Name)
	if s.Funcs != nil {
		tmpl = tmpl.Funcs(s.Funcs())
	}
	parsed, err := tmpl.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", s.Name, err)
	}
	return &CompiledTemplate{Name: s.Name, Source: data, Tmpl: parsed}, nil
}
