package loader

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Location is a resolved reference to an external value: which protocol
// fetches it, which serialization decodes it, and the protocol-specific
// path.
//
// A location_spec is accepted in either of two equivalent shapes in
// configuration: the compact string "<protocol>[+<serialization>]://<path>",
// or the structured object {protocol, serialization, path}. Both parse to
// this same type.
type Location struct {
	Protocol      string `mapstructure:"protocol"`
	Serialization string `mapstructure:"serialization"`
	Path          string `mapstructure:"path"`
}

func (l Location) String() string {
	if l.Serialization == "" {
		return fmt.Sprintf("%s://%s", l.Protocol, l.Path)
	}
	return fmt.Sprintf("%s+%s://%s", l.Protocol, l.Serialization, l.Path)
}

// ParseLocationSpec parses the compact string form of a location_spec.
// Serialization is optional; callers that need a default (e.g. "yaml")
// should apply it after parsing when Serialization comes back empty.
func ParseLocationSpec(raw string) (Location, error) {
	scheme, path, ok := strings.Cut(raw, "://")
	if !ok {
		return Location{}, fmt.Errorf("location %q: missing \"://\" separator", raw)
	}
	protocol, serialization, _ := strings.Cut(scheme, "+")
	if protocol == "" {
		return Location{}, fmt.Errorf("location %q: empty protocol", raw)
	}
	return Location{Protocol: protocol, Serialization: serialization, Path: path}, nil
}

// DecodeHook is a mapstructure decode hook that lets viper-bound config
// structs declare `Location` (or `map[string]Location`) fields and accept
// either spelling transparently.
func DecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Location{}) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			return ParseLocationSpec(data.(string))
		case reflect.Map:
			var loc Location
			if err := mapstructure.Decode(data, &loc); err != nil {
				return nil, fmt.Errorf("decode structured location: %w", err)
			}
			return loc, nil
		default:
			return data, nil
		}
	}
}
