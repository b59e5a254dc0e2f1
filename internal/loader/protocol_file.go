package loader

import (
	"context"
	"fmt"
	"os"
)

// FileProtocol reads a path directly from the local filesystem.
type FileProtocol struct{}

func (FileProtocol) Fetch(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}
