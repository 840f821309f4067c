// Package worlds models the managed world processes: the contract every
// world implementation honors, the registry used for selection, and the
// screen-session wrapper that drives real processes.
package worlds

import (
	"context"
	"errors"
	"fmt"
)

// World represents one manageable world process bound to a server build.
type World interface {
	// Name returns the unique world name.
	Name() string

	// BuildName returns the name of the server build this world runs.
	BuildName() string

	// IsOnline reports whether the world process is currently running.
	// The status is queried live, never cached.
	IsOnline(ctx context.Context) bool

	// SendCommand writes a console command to the running world.
	// Returns ErrWorldOffline if the world is not running.
	SendCommand(ctx context.Context, command string) error

	// Start launches the world process and waits until it is online.
	// Returns ErrWorldOnline if the world is already running.
	Start(ctx context.Context) error

	// Stop shuts the world down. A graceful stop issues the configured
	// stop command and waits for the process to exit. When force is true
	// the process is killed if it does not exit in time. Stopping an
	// offline world is a no-op.
	Stop(ctx context.Context, force bool) error
}

// ErrWorldOnline reports that a world is already running.
var ErrWorldOnline = errors.New("world is already online")

// ErrWorldOffline reports that a world is not running.
var ErrWorldOffline = errors.New("world is offline")

// StopFailedError reports that a world could not be stopped. It carries
// the identity of the offending world so callers can name it.
type StopFailedError struct {
	World string
	Err   error
}

func (e *StopFailedError) Error() string {
	return fmt.Sprintf("world %q could not be stopped: %v", e.World, e.Err)
}

func (e *StopFailedError) Unwrap() error { return e.Err }

// StartFailedError reports that a world could not be started.
type StartFailedError struct {
	World string
	Err   error
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("world %q could not be started: %v", e.World, e.Err)
}

func (e *StartFailedError) Unwrap() error { return e.Err }

// NotFoundError reports a lookup for an unknown world name.
type NotFoundError struct {
	World string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown world %q", e.World)
}
