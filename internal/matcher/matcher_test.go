package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetxds/control-plane/internal/instance"
)

func storeWith(t *testing.T, scopes map[string][]instance.Instance) *instance.Store {
	t.Helper()
	s := instance.NewStore()
	s.Publish("g1", scopes)
	return s
}

func TestSelectDisabledReturnsAll(t *testing.T) {
	store := storeWith(t, map[string][]instance.Instance{
		"clusters": {{"name": "a"}, {"name": "b"}},
		"default":  {{"name": "shared"}},
	})

	got := Select(store, map[string]any{"cluster": "T1"}, "clusters", Config{Enabled: false})
	assert.Len(t, got, 3)
	assert.Equal(t, "a", got[0]["name"])
	assert.Equal(t, "shared", got[2]["name"])
}

func TestSelectMatching(t *testing.T) {
	cfg := Config{Enabled: true, SourceKey: "service_clusters", NodeKey: "cluster"}

	tests := []struct {
		name      string
		instances []instance.Instance
		node      map[string]any
		wantNames []string
	}{
		{
			name: "exact value excludes others",
			instances: []instance.Instance{
				{"name": "a", "service_clusters": []any{"T1"}},
				{"name": "b", "service_clusters": []any{"X1"}},
			},
			node:      map[string]any{"cluster": "T1"},
			wantNames: []string{"a"},
		},
		{
			name: "wildcard source matches any node",
			instances: []instance.Instance{
				{"name": "a", "service_clusters": []any{"*"}},
			},
			node:      map[string]any{"cluster": "anything"},
			wantNames: []string{"a"},
		},
		{
			name: "wildcard node matches any source",
			instances: []instance.Instance{
				{"name": "a", "service_clusters": []any{"T1"}},
				{"name": "b", "service_clusters": []any{"X1"}},
			},
			node:      map[string]any{"cluster": "*"},
			wantNames: []string{"a", "b"},
		},
		{
			name: "collection intersection",
			instances: []instance.Instance{
				{"name": "a", "service_clusters": []any{"T1", "T2"}},
				{"name": "b", "service_clusters": []any{"X1", "X2"}},
			},
			node:      map[string]any{"cluster": []any{"T2", "Z9"}},
			wantNames: []string{"a"},
		},
		{
			name: "missing source key never matches",
			instances: []instance.Instance{
				{"name": "a"},
			},
			node:      map[string]any{"cluster": "T1"},
			wantNames: []string{},
		},
		{
			name: "order preserved",
			instances: []instance.Instance{
				{"name": "z", "service_clusters": []any{"T1"}},
				{"name": "a", "service_clusters": []any{"T1"}},
			},
			node:      map[string]any{"cluster": "T1"},
			wantNames: []string{"z", "a"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := storeWith(t, map[string][]instance.Instance{"clusters": tc.instances})
			got := Select(store, tc.node, "clusters", cfg)
			names := make([]string, 0, len(got))
			for _, inst := range got {
				names = append(names, inst["name"].(string))
			}
			assert.Equal(t, tc.wantNames, names)
		})
	}
}

func TestSelectDottedNodeKey(t *testing.T) {
	cfg := Config{Enabled: true, SourceKey: "service_clusters", NodeKey: "metadata.fleet"}
	store := storeWith(t, map[string][]instance.Instance{
		"clusters": {{"name": "a", "service_clusters": []any{"blue"}}},
	})

	node := map[string]any{"metadata": map[string]any{"fleet": "blue"}}
	got := Select(store, node, "clusters", cfg)
	assert.Len(t, got, 1)

	node = map[string]any{"metadata": map[string]any{"fleet": "green"}}
	got = Select(store, node, "clusters", cfg)
	assert.Empty(t, got)
}

func TestMatchesWildcardRequiresNonEmpty(t *testing.T) {
	assert.True(t, matches("*", "anything"))
	assert.True(t, matches([]any{"*"}, "x"))
	assert.False(t, matches(nil, nil))
	assert.False(t, matches("a", "b"))
}
