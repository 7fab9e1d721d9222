package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/pkg/schema"
)

func noop(name string) Action {
	return NewFunc(name, "test action", func(ctx context.Context, req Request) (any, error) {
		return name, nil
	})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(noop("alpha")))

	a, err := reg.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", a.Name())
	assert.True(t, reg.Has("alpha"))
	assert.Equal(t, 1, reg.Count())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(noop("alpha")))

	err := reg.Register(noop("alpha"))
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeConflict, perr.Code)
}

func TestRegistryRejectsNilAndUnnamed(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(noop("")))
}

func TestRegistryUnknownActionIsValidationError(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("teleport")
	require.Error(t, err)

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
	assert.Contains(t, perr.Message, "teleport")
}

func TestRegistryListIsSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(noop(name)))
	}

	infos := reg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "mid", infos[1].Name)
	assert.Equal(t, "zeta", infos[2].Name)
}
