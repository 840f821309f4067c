package worlds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Local test helpers to avoid import cycle.

type memWorld struct {
	name   string
	build  string
	online bool
}

func (w *memWorld) Name() string                              { return w.name }
func (w *memWorld) BuildName() string                         { return w.build }
func (w *memWorld) IsOnline(context.Context) bool             { return w.online }
func (w *memWorld) SendCommand(context.Context, string) error { return nil }
func (w *memWorld) Start(context.Context) error               { return nil }
func (w *memWorld) Stop(context.Context, bool) error          { return nil }

func fleet() *Registry {
	return NewRegistry([]World{
		&memWorld{name: "survival", build: "vanilla", online: true},
		&memWorld{name: "creative", build: "vanilla"},
		&memWorld{name: "lobby", build: "paper", online: true},
	})
}

func TestRegistry_OrderIsByName(t *testing.T) {
	assert.Equal(t, []string{"creative", "lobby", "survival"}, fleet().Names(),
		"iteration order is name order regardless of input order")
}

func TestRegistry_Get(t *testing.T) {
	r := fleet()

	w, err := r.Get("lobby")
	require.NoError(t, err)
	assert.Equal(t, "paper", w.BuildName())

	_, err = r.Get("atlantis")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "atlantis", nf.World)
}

func TestRegistry_Select(t *testing.T) {
	r := fleet()

	t.Run("explicit names", func(t *testing.T) {
		ws, err := r.Select([]string{"survival", "creative"}, false)
		require.NoError(t, err)
		require.Len(t, ws, 2)
		assert.Equal(t, "survival", ws[0].Name(), "explicit selection keeps the given order")
	})

	t.Run("all", func(t *testing.T) {
		ws, err := r.Select(nil, true)
		require.NoError(t, err)
		assert.Len(t, ws, 3)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Select([]string{"survival", "atlantis"}, false)
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("nothing selected", func(t *testing.T) {
		ws, err := r.Select(nil, false)
		require.NoError(t, err)
		assert.Empty(t, ws)
	})
}

func TestRegistry_BoundTo(t *testing.T) {
	r := fleet()

	bound := r.BoundTo("vanilla")
	require.Len(t, bound, 2)
	assert.Equal(t, "creative", bound[0].Name())
	assert.Equal(t, "survival", bound[1].Name())

	assert.Empty(t, r.BoundTo("forge"))
}

func TestRegistry_OnlineBoundTo(t *testing.T) {
	r := fleet()

	online := r.OnlineBoundTo(context.Background(), "vanilla")
	require.Len(t, online, 1)
	assert.Equal(t, "survival", online[0].Name(), "offline worlds are excluded from the snapshot")
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("process refused")

	var stop error = &StopFailedError{World: "survival", Err: cause}
	assert.ErrorIs(t, stop, cause)
	assert.Contains(t, stop.Error(), "survival")

	var start error = &StartFailedError{World: "lobby", Err: cause}
	assert.ErrorIs(t, start, cause)
	assert.Contains(t, start.Error(), "lobby")
}
