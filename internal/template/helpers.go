package template

import (
	"encoding/json"
	"fmt"
	"text/template"
)

// Helpers returns the fixed, trusted library of template functions beyond
// sprig's general-purpose set: small domain helpers specific to rendering
// discovery resources. This fixed library stands in for a code-module
// loader that would otherwise let configuration execute arbitrary code at
// template-render time.
func Helpers() template.FuncMap {
	return template.FuncMap{
		"endpoint": endpointHelper,
		"toJSON":   toJSONHelper,
	}
}

// endpointHelper joins an address and port into the "host:port" form most
// resource templates need for an Envoy-style socket address.
func endpointHelper(address string, port any) string {
	return fmt.Sprintf("%s:%v", address, port)
}

// toJSONHelper renders v as a single-line JSON document, for templates
// that need to embed a structured value verbatim (e.g. an opaque metadata
// blob) inside an otherwise YAML/JSON document.
func toJSONHelper(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toJSON: %w", err)
	}
	return string(data), nil
}
