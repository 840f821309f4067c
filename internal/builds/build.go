// Package builds models the installable server software: the contract the
// orchestrator consumes, the registry used for selection, and an HTTP
// download implementation.
package builds

import (
	"context"
	"errors"
	"fmt"
)

// Build represents one installable server software version that one or
// more worlds run against.
type Build interface {
	// Name returns the unique build name.
	Name() string

	// URL returns the download location of the build artifact.
	URL() string

	// InstallPath returns the path the build artifact is installed at.
	InstallPath() string

	// Options returns the build's configuration options.
	Options() map[string]string

	// Update downloads the build artifact, streaming progress to the
	// reporter. A failed update returns an *UpdateError.
	Update(ctx context.Context, reporter ProgressReporter) error

	// Uninstall removes the build artifact. The replacement is the build
	// that takes over the removed build's worlds; callers rebind worlds
	// before invoking Uninstall. Returns ErrBuildInUse while any bound
	// world is still online.
	Uninstall(ctx context.Context, replacement Build) error
}

// ProgressReporter receives download progress during a build update.
// Implementations must tolerate a zero or unknown total.
type ProgressReporter interface {
	// Begin announces a new transfer with the total size in bytes, or -1
	// if the size is unknown.
	Begin(name string, total int64)
	// Advance reports n additional transferred bytes.
	Advance(n int64)
	// Done closes the transfer; err is nil on success.
	Done(err error)
}

// ErrBuildInUse reports that a build cannot be uninstalled while an
// online world runs it.
var ErrBuildInUse = errors.New("server build is still in use by an online world")

// UpdateError reports a failed build update with the build's identity.
type UpdateError struct {
	Build string
	Err   error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update of server build %q failed: %v", e.Build, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// NotFoundError reports a lookup for an unknown build name.
type NotFoundError struct {
	Build string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown server build %q", e.Build)
}
