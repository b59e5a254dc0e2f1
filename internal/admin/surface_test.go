package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/discovery"
	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/instance/transform"
	"github.com/fleetxds/control-plane/internal/matcher"
	"github.com/fleetxds/control-plane/internal/template"
)

const clustersTemplate = `
{{- range .instances }}
- name: {{ .name }}
{{- end }}
`

func testSurface(t *testing.T) *Surface {
	t.Helper()

	store := instance.NewStore()
	scopes := map[string][]instance.Instance{
		"clusters": {
			{"name": "a", "service_clusters": []any{"T1"}},
			{"name": "b", "service_clusters": []any{"T1"}},
		},
	}
	gen, err := instance.ComputeGeneration(scopes)
	require.NoError(t, err)
	store.Publish(gen, scopes)

	reg := template.NewRegistry()
	artifact, err := template.Compile("default/clusters", []byte(clustersTemplate), nil)
	require.NoError(t, err)
	reg.Add("default", "clusters", artifact)

	engine := &discovery.Engine{
		Store:     store,
		Templates: reg,
		Context:   template.NewContext(nil),
		Matcher:   matcher.Config{Enabled: true, SourceKey: "service_clusters", NodeKey: "cluster"},
	}

	return &Surface{
		Engine:    engine,
		Poller:    instance.NewPoller(store, nil, transform.NewRegistry(), instance.PollerConfig{}, nil, nil),
		Templates: reg,
		Config:    &config.Config{},
	}
}

func TestListResourceNames(t *testing.T) {
	s := testSurface(t)
	names, err := s.ListResourceNames(context.Background(), "1.25.3", "clusters", discovery.Node{"cluster": "T1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFetchResource(t *testing.T) {
	s := testSurface(t)

	resource, err := s.FetchResource(context.Background(), "1.25.3", "clusters", "b", discovery.Node{"cluster": "T1"})
	require.NoError(t, err)
	assert.Equal(t, "b", resource["name"])

	_, err = s.FetchResource(context.Background(), "1.25.3", "clusters", "missing", discovery.Node{"cluster": "T1"})
	assert.Error(t, err)
}

func TestDeepCheckAllPairs(t *testing.T) {
	s := testSurface(t)
	broken, err := template.Compile("default/listeners", []byte(`{{ fail "boom" }}`), nil)
	require.NoError(t, err)
	s.Templates.Add("default", "listeners", broken)

	results := s.DeepCheck(context.Background(), nil)
	require.Len(t, results, 2)

	byType := make(map[string]DeepCheckResult, len(results))
	for _, r := range results {
		byType[r.ResourceType] = r
	}
	assert.True(t, byType["clusters"].OK)
	assert.False(t, byType["listeners"].OK)
	assert.NotEmpty(t, byType["listeners"].Error)
}

func TestTemplatesMetadata(t *testing.T) {
	s := testSurface(t)
	metas := s.TemplatesMetadata()
	require.Len(t, metas, 1)
	assert.Equal(t, "clusters", metas[0].ResourceType)
	assert.NotEmpty(t, metas[0].Checksum)
	assert.Positive(t, metas[0].SourceLength)
	assert.Contains(t, metas[0].FreeIdents, "instances")
}

func TestCryptoHelpersRequireSuite(t *testing.T) {
	s := testSurface(t)

	_, err := s.Encrypt("x")
	assert.Error(t, err)
	_, err = s.Decrypt("x")
	assert.Error(t, err)
	assert.False(t, s.Decryptable("x"))

	key, err := s.GenerateKey("aead")
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestCryptoHelpersWithSuite(t *testing.T) {
	s := testSurface(t)
	secret, err := cipher.NewAEADKey()
	require.NoError(t, err)
	s.Cipher, err = cipher.NewSuite([]cipher.Key{{ID: "k1", Scheme: "aead", Secret: secret}})
	require.NoError(t, err)

	ciphertext, err := s.Encrypt("secret")
	require.NoError(t, err)
	assert.True(t, s.Decryptable(ciphertext))

	plaintext, err := s.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", plaintext)
}
