package sources

import (
	"context"
	"fmt"

	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/loader"
)

// Loaded is a source that re-resolves a loader.Location on every poll: it
// backs the "http", "file", and "s3" source types, which differ only in
// which protocol the location names.
type Loaded struct {
	Registry *loader.Registry
	Location loader.Location
}

// NewLoaded builds a Loaded source. serialization defaults to "yaml" when
// loc.Serialization is empty, since source documents are structured data.
func NewLoaded(registry *loader.Registry, loc loader.Location) *Loaded {
	if loc.Serialization == "" {
		loc.Serialization = "yaml"
	}
	return &Loaded{Registry: registry, Location: loc}
}

func (s *Loaded) Get(ctx context.Context) ([]instance.Instance, error) {
	value, err := s.Registry.Load(ctx, s.Location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Location, err)
	}
	instances, err := asInstanceList(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location, err)
	}
	return instances, nil
}
