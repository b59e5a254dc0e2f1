package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseInputs() fingerprintInputs {
	return fingerprintInputs{
		instancesGeneration: "gen-1",
		templateChecksum:    "tpl-1",
		contextChecksum:     "ctx-1",
		resourceType:        "clusters",
		apiGeneration:       "v3",
		nodeMatchValue:      "T1",
		requestedNames:      []string{"a", "b"},
		hostHeader:          "cp.example.com",
		cipherIdentity:      "k1:aead",
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	assert.Equal(t, fingerprint(baseInputs()), fingerprint(baseInputs()))
}

func TestFingerprintRequestedNamesAreASet(t *testing.T) {
	a := baseInputs()
	a.requestedNames = []string{"a", "b"}
	b := baseInputs()
	b.requestedNames = []string{"b", "a"}
	assert.Equal(t, fingerprint(a), fingerprint(b))

	c := baseInputs()
	c.requestedNames = []string{"a", "c"}
	assert.NotEqual(t, fingerprint(a), fingerprint(c))
}

func TestFingerprintSensitiveToEveryInput(t *testing.T) {
	base := fingerprint(baseInputs())

	mutations := map[string]func(*fingerprintInputs){
		"generation":     func(in *fingerprintInputs) { in.instancesGeneration = "gen-2" },
		"template":       func(in *fingerprintInputs) { in.templateChecksum = "tpl-2" },
		"context":        func(in *fingerprintInputs) { in.contextChecksum = "ctx-2" },
		"resource type":  func(in *fingerprintInputs) { in.resourceType = "listeners" },
		"api generation": func(in *fingerprintInputs) { in.apiGeneration = "v2" },
		"node match":     func(in *fingerprintInputs) { in.nodeMatchValue = "T2" },
		"host header":    func(in *fingerprintInputs) { in.hostHeader = "other" },
		"cipher":         func(in *fingerprintInputs) { in.cipherIdentity = "k2:aead" },
		"extra keys":     func(in *fingerprintInputs) { in.extraKeys = map[string]string{"env": "prod"} },
	}
	for name, mutate := range mutations {
		in := baseInputs()
		mutate(&in)
		assert.NotEqual(t, base, fingerprint(in), name)
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	a := baseInputs()
	a.templateChecksum = "ab"
	a.contextChecksum = "c"
	b := baseInputs()
	b.templateChecksum = "a"
	b.contextChecksum = "bc"
	assert.NotEqual(t, fingerprint(a), fingerprint(b))
}

func TestExtractDottedPath(t *testing.T) {
	data := map[string]any{
		"metadata": map[string]any{"auth": "tok", "nested": map[string]any{"deep": 1}},
		"cluster":  "T1",
	}
	assert.Equal(t, "T1", extract(data, "cluster"))
	assert.Equal(t, "tok", extract(data, "metadata.auth"))
	assert.Equal(t, 1, extract(data, "metadata.nested.deep"))
	assert.Nil(t, extract(data, "metadata.missing"))
	assert.Nil(t, extract(data, "cluster.not_a_map"))
	assert.Nil(t, extract(data, ""))
}

func TestFilterByName(t *testing.T) {
	resources := []map[string]any{{"name": "a"}, {"name": "b"}, {"no_name": true}}

	assert.Len(t, filterByName(resources, nil), 3, "empty set returns all")
	got := filterByName(resources, []string{"b"})
	assert.Len(t, got, 1)
	assert.Equal(t, "b", got[0]["name"])
	assert.Empty(t, filterByName(resources, []string{"zz"}))
}

func TestToResourceListShapes(t *testing.T) {
	list, err := toResourceList([]any{map[string]any{"name": "a"}})
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = toResourceList(map[string]any{"name": "solo"})
	assert.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = toResourceList(nil)
	assert.NoError(t, err)
	assert.Empty(t, list)

	_, err = toResourceList("scalar")
	assert.Error(t, err)

	_, err = toResourceList([]any{"not-an-object"})
	assert.Error(t, err)
}
