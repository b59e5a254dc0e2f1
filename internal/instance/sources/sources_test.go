package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/loader"
)

func testRegistry() *loader.Registry {
	r := loader.NewRegistry()
	r.RegisterProtocol("file", loader.FileProtocol{})
	r.RegisterSerializer("yaml", loader.YAMLSerializer{})
	return r
}

func TestInlineSource(t *testing.T) {
	src := NewInline([]map[string]any{
		{"name": "a", "service_clusters": []any{"T1"}},
		{"name": "b"},
	})

	got, err := src.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0]["name"])
}

func TestLoadedSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: a
  service_clusters: [T1]
- name: b
`), 0o600))

	src := NewLoaded(testRegistry(), loader.Location{Protocol: "file", Path: path})
	got, err := src.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1]["name"])
}

func TestLoadedSourceAcceptsInstancesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instances:
  - name: only
`), 0o600))

	src := NewLoaded(testRegistry(), loader.Location{Protocol: "file", Path: path})
	got, err := src.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0]["name"])
}

func TestLoadedSourceRejectsScalarDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("just a string\n"), 0o600))

	src := NewLoaded(testRegistry(), loader.Location{Protocol: "file", Path: path})
	_, err := src.Get(context.Background())
	assert.Error(t, err)
}

func TestBuildInline(t *testing.T) {
	src, err := Build(context.Background(), config.SourceConfig{
		Type: "inline",
		Config: map[string]any{
			"instances": []any{map[string]any{"name": "a"}},
		},
	}, testRegistry())
	require.NoError(t, err)

	got, err := src.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBuildValidation(t *testing.T) {
	registry := testRegistry()
	tests := []struct {
		name string
		sc   config.SourceConfig
	}{
		{"unknown type", config.SourceConfig{Type: "carrier-pigeon"}},
		{"inline without instances", config.SourceConfig{Type: "inline", Config: map[string]any{}}},
		{"inline with non-list", config.SourceConfig{Type: "inline", Config: map[string]any{"instances": "x"}}},
		{"http without url", config.SourceConfig{Type: "http", Config: map[string]any{}}},
		{"file without path", config.SourceConfig{Type: "file", Config: map[string]any{}}},
		{"s3 without key", config.SourceConfig{Type: "s3", Config: map[string]any{"bucket": "b"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(context.Background(), tc.sc, registry)
			assert.Error(t, err)
		})
	}
}
