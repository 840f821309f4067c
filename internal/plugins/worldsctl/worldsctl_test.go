package worldsctl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/plugin"
	"github.com/warden-sh/warden/internal/worlds"
)

// Local test helpers to avoid import cycle.

type fakeWorld struct {
	name     string
	online   bool
	failStop bool

	started bool
	stopped bool
	forced  bool
	sent    []string
}

func (w *fakeWorld) Name() string                  { return w.name }
func (w *fakeWorld) BuildName() string             { return "vanilla" }
func (w *fakeWorld) IsOnline(context.Context) bool { return w.online }

func (w *fakeWorld) SendCommand(_ context.Context, cmd string) error {
	if !w.online {
		return worlds.ErrWorldOffline
	}
	w.sent = append(w.sent, cmd)
	return nil
}

func (w *fakeWorld) Start(context.Context) error {
	if w.online {
		return worlds.ErrWorldOnline
	}
	w.online = true
	w.started = true
	return nil
}

func (w *fakeWorld) Stop(_ context.Context, force bool) error {
	if w.failStop && !force {
		return &worlds.StopFailedError{World: w.name, Err: errors.New("ignored stop command")}
	}
	w.online = false
	w.stopped = true
	w.forced = force
	return nil
}

func invocation(ws ...worlds.World) plugin.Invocation {
	return plugin.Invocation{Worlds: ws}
}

func TestRun_NoWorldSelected(t *testing.T) {
	p := New(&bytes.Buffer{}, zap.NewNop())
	err := p.Run(context.Background(), plugin.Invocation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no world selected")
}

func TestRun_Status(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.status = true

	on := &fakeWorld{name: "survival", online: true}
	off := &fakeWorld{name: "creative"}
	require.NoError(t, p.Run(context.Background(), invocation(on, off)))

	assert.Contains(t, buf.String(), "survival - online")
	assert.Contains(t, buf.String(), "creative - offline")
}

func TestRun_StartOfflineWorld(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.start = true

	w := &fakeWorld{name: "survival"}
	require.NoError(t, p.Run(context.Background(), invocation(w)))

	assert.True(t, w.started)
	assert.Contains(t, buf.String(), "survival - started")
}

func TestRun_StartAlreadyOnlineIsSuccess(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.start = true

	w := &fakeWorld{name: "survival", online: true}
	require.NoError(t, p.Run(context.Background(), invocation(w)))

	assert.False(t, w.started)
	assert.Contains(t, buf.String(), "survival - already online")
}

func TestRun_Stop(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.stop = true

	w := &fakeWorld{name: "survival", online: true}
	require.NoError(t, p.Run(context.Background(), invocation(w)))

	assert.True(t, w.stopped)
	assert.False(t, w.forced)
	assert.Contains(t, buf.String(), "survival - stopped")
}

func TestRun_ForceStopKillsStubbornWorld(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.forceStop = true

	w := &fakeWorld{name: "survival", online: true, failStop: true}
	require.NoError(t, p.Run(context.Background(), invocation(w)))

	assert.True(t, w.stopped)
	assert.True(t, w.forced)
}

func TestRun_StopFailureNamesTheWorld(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.stop = true

	good := &fakeWorld{name: "creative", online: true}
	bad := &fakeWorld{name: "survival", online: true, failStop: true}
	err := p.Run(context.Background(), invocation(bad, good))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "survival")
	assert.NotContains(t, err.Error(), "creative")
	assert.True(t, good.stopped, "one failing world never aborts the sweep")
	assert.Contains(t, buf.String(), "stop failed")
}

func TestRun_SendCommand(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.send = "say restart in 5 minutes"

	w := &fakeWorld{name: "survival", online: true}
	require.NoError(t, p.Run(context.Background(), invocation(w)))
	assert.Equal(t, []string{"say restart in 5 minutes"}, w.sent)
}

func TestRun_SendToOfflineWorldFails(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, zap.NewNop())
	p.send = "say hello"

	w := &fakeWorld{name: "survival"}
	err := p.Run(context.Background(), invocation(w))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "send failed")
}

func TestDescribe_FinishesBeforeDefaultPriority(t *testing.T) {
	desc := New(&bytes.Buffer{}, zap.NewNop()).Describe()
	assert.Equal(t, "worlds", desc.Name)
	assert.Less(t, desc.FinishPriority, 0)
}
