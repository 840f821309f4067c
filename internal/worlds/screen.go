package worlds

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const (
	defaultStopCommand = "stop"
	defaultStopTimeout = 10 * time.Second
	startPollTimeout   = 15 * time.Second
	pollInterval       = 250 * time.Millisecond
)

// ScreenWorld drives one world process inside a detached screen session.
// Console commands are stuffed into the session's input; liveness is
// determined by scanning the process table for the session.
type ScreenWorld struct {
	name        string
	build       string
	dir         string
	startCmd    string
	stopCmd     string
	stopTimeout time.Duration
	log         *zap.Logger
}

// ScreenOptions configures a ScreenWorld.
type ScreenOptions struct {
	// Build is the name of the server build the world runs.
	Build string
	// Dir is the working directory the start command runs in.
	Dir string
	// StartCommand launches the server, executed with /bin/sh -c.
	StartCommand string
	// StopCommand is the console command that shuts the server down.
	// Defaults to "stop".
	StopCommand string
	// StopTimeout bounds how long a graceful stop waits for the process
	// to exit. Defaults to 10s.
	StopTimeout time.Duration
}

// NewScreenWorld creates a screen-backed world.
func NewScreenWorld(name string, opts ScreenOptions, log *zap.Logger) *ScreenWorld {
	stopCmd := opts.StopCommand
	if stopCmd == "" {
		stopCmd = defaultStopCommand
	}
	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	return &ScreenWorld{
		name:        name,
		build:       opts.Build,
		dir:         opts.Dir,
		startCmd:    opts.StartCommand,
		stopCmd:     stopCmd,
		stopTimeout: stopTimeout,
		log:         log.Named("world").With(zap.String("world", name)),
	}
}

// Name returns the world name.
func (w *ScreenWorld) Name() string { return w.name }

// BuildName returns the bound server build name.
func (w *ScreenWorld) BuildName() string { return w.build }

// sessionName returns the screen session name for this world.
func (w *ScreenWorld) sessionName() string {
	return "warden-" + w.name
}

// IsOnline reports whether the world's screen session is running.
func (w *ScreenWorld) IsOnline(ctx context.Context) bool {
	_, ok := w.findSession(ctx)
	return ok
}

// findSession scans the process table for the screen session that hosts
// this world.
func (w *ScreenWorld) findSession(ctx context.Context) (*process.Process, bool) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		w.log.Warn("process table scan failed", zap.Error(err))
		return nil, false
	}

	marker := "SCREEN"
	session := w.sessionName()
	for _, p := range procs {
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, marker) && strings.Contains(cmdline, session) {
			return p, true
		}
	}
	return nil, false
}

// SendCommand stuffs a console command into the world's screen session.
func (w *ScreenWorld) SendCommand(ctx context.Context, command string) error {
	if !w.IsOnline(ctx) {
		return ErrWorldOffline
	}

	// screen needs the carriage return to submit the input.
	stuff := exec.CommandContext(ctx,
		"screen", "-S", w.sessionName(), "-p", "0", "-X", "stuff", command+"\r")
	if out, err := stuff.CombinedOutput(); err != nil {
		return fmt.Errorf("send %q to world %q: %w (%s)",
			command, w.name, err, strings.TrimSpace(string(out)))
	}

	w.log.Debug("sent console command", zap.String("command", command))
	return nil
}

// Start launches the world inside a new detached screen session and waits
// until the session shows up in the process table.
func (w *ScreenWorld) Start(ctx context.Context) error {
	if w.IsOnline(ctx) {
		return ErrWorldOnline
	}

	launch := exec.CommandContext(ctx,
		"screen", "-dmS", w.sessionName(), "/bin/sh", "-c", w.startCmd)
	launch.Dir = w.dir
	if out, err := launch.CombinedOutput(); err != nil {
		return &StartFailedError{World: w.name, Err: fmt.Errorf(
			"launch screen session: %w (%s)", err, strings.TrimSpace(string(out)))}
	}

	if err := w.waitOnline(ctx); err != nil {
		return &StartFailedError{World: w.name, Err: err}
	}

	w.log.Info("world started")
	return nil
}

// Stop shuts the world down via its stop command. When force is true the
// process is killed if it does not exit within the stop timeout.
func (w *ScreenWorld) Stop(ctx context.Context, force bool) error {
	p, ok := w.findSession(ctx)
	if !ok {
		return nil
	}

	if err := w.SendCommand(ctx, w.stopCmd); err != nil && err != ErrWorldOffline {
		if !force {
			return &StopFailedError{World: w.name, Err: err}
		}
		w.log.Warn("stop command failed, forcing", zap.Error(err))
	}

	err := w.waitOffline(ctx)
	if err == nil {
		w.log.Info("world stopped")
		return nil
	}
	if !force {
		return &StopFailedError{World: w.name, Err: err}
	}

	w.log.Warn("graceful stop timed out, killing process")
	if killErr := p.KillWithContext(ctx); killErr != nil {
		return &StopFailedError{World: w.name, Err: fmt.Errorf("kill: %w", killErr)}
	}
	if err := w.waitOffline(ctx); err != nil {
		return &StopFailedError{World: w.name, Err: err}
	}

	w.log.Info("world killed")
	return nil
}

// waitOnline polls until the session appears or the poll window closes.
func (w *ScreenWorld) waitOnline(ctx context.Context) error {
	return w.poll(ctx, startPollTimeout, func(ctx context.Context) bool {
		return w.IsOnline(ctx)
	}, "world did not come online")
}

// waitOffline polls until the session disappears or the stop timeout passes.
func (w *ScreenWorld) waitOffline(ctx context.Context) error {
	return w.poll(ctx, w.stopTimeout, func(ctx context.Context) bool {
		return !w.IsOnline(ctx)
	}, "world is still online")
}

func (w *ScreenWorld) poll(ctx context.Context, window time.Duration, done func(context.Context) bool, failure string) error {
	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(pollInterval),
			backoff.WithMaxInterval(time.Second),
			backoff.WithMaxElapsedTime(window),
		), ctx)

	return backoff.Retry(func() error {
		if done(ctx) {
			return nil
		}
		return fmt.Errorf("%s", failure)
	}, policy)
}
