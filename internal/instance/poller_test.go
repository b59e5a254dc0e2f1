package instance

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/instance/transform"
)

// stubSource returns a fixed instance list, or an error, and counts calls.
type stubSource struct {
	instances []Instance
	err       error
	calls     int
}

func (s *stubSource) Get(ctx context.Context) ([]Instance, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.instances, nil
}

func newTestPoller(specs []SourceSpec, cfg PollerConfig) (*Poller, *Store) {
	store := NewStore()
	return NewPoller(store, specs, transform.NewRegistry(), cfg, nil, nil), store
}

func TestPollerInitialLoadPublishes(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "a"}}}
	p, store := newTestPoller([]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	assert.NotEmpty(t, store.Generation())
	assert.Len(t, store.Get("clusters"), 1)
}

func TestPollerEmptyScopeDefaultsToDefault(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "u"}}}
	p, store := newTestPoller([]SourceSpec{{Type: "inline", Src: src}}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	assert.Len(t, store.Get("clusters"), 1, "default-scope instances visible everywhere")
}

func TestPollerFailureRetainsLastGoodGeneration(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "a"}}}
	p, store := newTestPoller([]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	goodGen := store.Generation()

	src.err = fmt.Errorf("upstream down")
	err := p.pollOnce(context.Background())
	require.Error(t, err)

	var srcErr *SourceError
	assert.ErrorAs(t, err, &srcErr)
	assert.Equal(t, goodGen, store.Generation(), "last-good generation retained")
	assert.Len(t, store.Get("clusters"), 1)
}

func TestPollerUnchangedContentSkipsRepublish(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "a"}}}
	p, store := newTestPoller([]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	g1 := store.Generation()

	require.NoError(t, p.pollOnce(context.Background()))
	assert.Equal(t, g1, store.Generation())
	assert.Equal(t, 2, src.calls)
}

func TestPollerContentChangePublishesNewGeneration(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "a"}}}
	p, store := newTestPoller([]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	g1 := store.Generation()

	src.instances = []Instance{{"name": "a"}, {"name": "b"}}
	require.NoError(t, p.pollOnce(context.Background()))
	assert.NotEqual(t, g1, store.Generation())
	assert.Len(t, store.Get("clusters"), 2)
}

func TestPollerMergePreservesSourceOrderWithinScope(t *testing.T) {
	first := &stubSource{instances: []Instance{{"name": "a"}}}
	second := &stubSource{instances: []Instance{{"name": "b"}}}
	p, store := newTestPoller([]SourceSpec{
		{Type: "inline", Scope: "clusters", Src: first},
		{Type: "inline", Scope: "clusters", Src: second},
	}, PollerConfig{})

	require.NoError(t, p.InitialLoad(context.Background()))
	got := store.Get("clusters")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0]["name"])
	assert.Equal(t, "b", got[1]["name"])
}

func TestPollerPerInstanceModifierDropsFailingInstance(t *testing.T) {
	src := &stubSource{instances: []Instance{
		{"name": "keep"},
		{"no_name": true},
	}}
	p, store := newTestPoller(
		[]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}},
		PollerConfig{PerInstModifiers: []string{"require_name"}},
	)

	require.NoError(t, p.InitialLoad(context.Background()))
	got := store.Get("clusters")
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0]["name"])
}

func TestPollerGlobalModifier(t *testing.T) {
	src := &stubSource{instances: []Instance{
		{"name": "dup"},
		{"name": "dup"},
		{"name": "other"},
	}}
	p, store := newTestPoller(
		[]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}},
		PollerConfig{GlobalModifiers: []string{"dedupe_by_name"}},
	)

	require.NoError(t, p.InitialLoad(context.Background()))
	assert.Len(t, store.Get("clusters"), 2)
}

func TestPollerUnknownModifierFailsCycle(t *testing.T) {
	src := &stubSource{instances: []Instance{{"name": "a"}}}
	p, store := newTestPoller(
		[]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}},
		PollerConfig{PerInstModifiers: []string{"no_such_modifier"}},
	)

	assert.Error(t, p.InitialLoad(context.Background()))
	assert.Equal(t, "", store.Generation())
}

func TestPollerRawSnapshotIsPreTransform(t *testing.T) {
	src := &stubSource{instances: []Instance{
		{"name": "keep"},
		{"no_name": true},
	}}
	p, store := newTestPoller(
		[]SourceSpec{{Type: "inline", Scope: "clusters", Src: src}},
		PollerConfig{PerInstModifiers: []string{"require_name"}},
	)

	require.NoError(t, p.InitialLoad(context.Background()))
	raw := p.RawSnapshot()
	require.NotNil(t, raw)
	assert.Len(t, raw["clusters"], 2, "raw keeps the dropped instance")
	assert.Len(t, store.Get("clusters"), 1)
}
