package instance

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// ComputeGeneration derives a content-hash generation id from the full set
// of scopes, deterministic regardless of map iteration order.
func ComputeGeneration(scopes map[string][]Instance) (string, error) {
	names := make([]string, 0, len(scopes))
	for name := range scopes {
		names = append(names, name)
	}
	sort.Strings(names)

	h := xxhash.New()
	for _, name := range names {
		if _, err := h.WriteString(name); err != nil {
			return "", fmt.Errorf("hash scope name: %w", err)
		}
		for _, inst := range scopes[name] {
			data, err := json.Marshal(inst)
			if err != nil {
				return "", fmt.Errorf("marshal instance for hashing: %w", err)
			}
			if _, err := h.Write(data); err != nil {
				return "", fmt.Errorf("hash instance: %w", err)
			}
		}
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}
