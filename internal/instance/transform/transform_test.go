package transform

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/instance/model"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"lowercase_name", "require_name"} {
		_, err := r.PerInstance(name)
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"dedupe_by_name", "sort_by_name"} {
		_, err := r.Global(name)
		assert.NoError(t, err, name)
	}

	_, err := r.PerInstance("nope")
	assert.Error(t, err)
	_, err = r.Global("nope")
	assert.Error(t, err)
}

func TestRegistryCustomModifier(t *testing.T) {
	r := NewRegistry()
	r.RegisterPerInstance("tag", PerInstanceFunc(func(inst model.Instance) (model.Instance, error) {
		inst["tagged"] = true
		return inst, nil
	}))

	mod, err := r.PerInstance("tag")
	require.NoError(t, err)
	out, err := mod.Apply(model.Instance{"name": "a"})
	require.NoError(t, err)
	assert.Equal(t, true, out["tagged"])
}

func TestLowercaseNameDoesNotMutateInput(t *testing.T) {
	r := NewRegistry()
	mod, err := r.PerInstance("lowercase_name")
	require.NoError(t, err)

	in := model.Instance{"name": "UPPER"}
	out, err := mod.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "upper", out["name"])
	assert.Equal(t, "UPPER", in["name"])
}

func TestRequireName(t *testing.T) {
	r := NewRegistry()
	mod, err := r.PerInstance("require_name")
	require.NoError(t, err)

	_, err = mod.Apply(model.Instance{"name": "ok"})
	assert.NoError(t, err)
	_, err = mod.Apply(model.Instance{"other": 1})
	assert.Error(t, err)
}

func TestDedupeByName(t *testing.T) {
	r := NewRegistry()
	mod, err := r.Global("dedupe_by_name")
	require.NoError(t, err)

	out, err := mod.Apply("clusters", []model.Instance{
		{"name": "a", "v": 1},
		{"name": "a", "v": 2},
		{"name": "b"},
		{"unnamed": true},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0]["v"], "first occurrence wins")
}

func TestSortByName(t *testing.T) {
	r := NewRegistry()
	mod, err := r.Global("sort_by_name")
	require.NoError(t, err)

	out, err := mod.Apply("clusters", []model.Instance{
		{"name": "c"},
		{"unnamed": 1},
		{"name": "a"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0]["name"])
	assert.Equal(t, "c", out[1]["name"])
	_, hasName := out[2]["name"]
	assert.False(t, hasName, "unnamed instances sort last")
}

func TestTransformError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &Error{Modifier: "m", Scope: "clusters", Cause: cause}
	assert.Contains(t, err.Error(), "m")
	assert.ErrorIs(t, err, cause)
}
