package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLSerializer decodes structured-document bytes (YAML, and by extension
// JSON, which is a YAML subset) into a generic any value.
type YAMLSerializer struct{}

func (YAMLSerializer) Decode(data []byte) (any, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return value, nil
}
