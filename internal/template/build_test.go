package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/loader"
)

func buildLoaderRegistry() *loader.Registry {
	r := loader.NewRegistry()
	r.RegisterProtocol("inline", loader.InlineProtocol{})
	return r
}

func TestBuildRegistryCompilesEveryPair(t *testing.T) {
	cfg := map[string]map[string]loader.Location{
		"default": {
			"clusters":  {Protocol: "inline", Path: "- name: c"},
			"listeners": {Protocol: "inline", Path: "- name: l"},
		},
		"1.13": {
			"clusters": {Protocol: "inline", Path: "- name: c13"},
		},
	}

	reg, err := BuildRegistry(context.Background(), cfg, buildLoaderRegistry(), nil)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 3)

	a, err := reg.For("1.13.2", "clusters")
	require.NoError(t, err)
	assert.Equal(t, "1.13", a.ProxyVersion)
}

func TestBuildRegistryWithoutDefaultVersion(t *testing.T) {
	// No "default" entry is a valid deployment: unmatched versions resolve
	// to ErrNotFound at request time instead of failing startup.
	cfg := map[string]map[string]loader.Location{
		"1.13": {"clusters": {Protocol: "inline", Path: "- name: c13"}},
	}

	reg, err := BuildRegistry(context.Background(), cfg, buildLoaderRegistry(), nil)
	require.NoError(t, err)

	a, err := reg.For("1.13.7", "clusters")
	require.NoError(t, err)
	assert.Equal(t, "1.13", a.ProxyVersion)

	_, err = reg.For("1.25.0", "clusters")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildRegistryFailsOnBrokenTemplate(t *testing.T) {
	cfg := map[string]map[string]loader.Location{
		"default": {"clusters": {Protocol: "inline", Path: "{{ .unclosed"}},
	}
	_, err := BuildRegistry(context.Background(), cfg, buildLoaderRegistry(), nil)
	assert.Error(t, err)
}
