package loader

import (
	"context"
	"fmt"
	"os"
)

// EnvProtocol resolves a location to the value of an environment variable.
type EnvProtocol struct{}

func (EnvProtocol) Fetch(ctx context.Context, path string) ([]byte, error) {
	val, ok := os.LookupEnv(path)
	if !ok {
		return nil, fmt.Errorf("environment variable %q is not set", path)
	}
	return []byte(val), nil
}
