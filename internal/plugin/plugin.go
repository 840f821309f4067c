// Package plugin is the lifecycle framework: every unit of CLI
// functionality registers here with a descriptor, gets an isolated
// runtime (configuration section, data directory, sub-command), and
// honors the run/finish protocol the dispatcher drives.
package plugin

import (
	"context"
	"fmt"

	"github.com/warden-sh/warden/internal/builds"
	"github.com/warden-sh/warden/internal/worlds"
)

// Descriptor identifies a plugin and declares its lifecycle ordering.
type Descriptor struct {
	// Name is the unique, stable plugin identifier; it doubles as the
	// sub-command name and the configuration section name.
	Name string
	// Summary is the one-line help text of the sub-command.
	Summary string
	// InitPriority orders runtime creation; lower runs earlier. Ties keep
	// registration order.
	InitPriority int
	// FinishPriority orders the finish sweep; lower runs earlier.
	FinishPriority int
	// Version is the warden version the plugin was written against.
	Version string
	// DownloadURL optionally points at the plugin's upstream artifact.
	DownloadURL string
	// ArtifactPath optionally names the on-disk artifact an uninstall
	// removes. Empty for compiled-in plugins.
	ArtifactPath string
}

// Invocation carries the dispatcher's resolved target selection into a
// plugin run.
type Invocation struct {
	// Worlds is the world selection (-w/--world or -W/--all-worlds).
	Worlds []worlds.World
	// Builds is the server-build selection (-s/--server or -S/--all-server).
	Builds []builds.Build
}

// Plugin is the contract every plugin implements. Registration is
// explicit: main constructs plugin values and hands them to the registry,
// there is no reflective discovery.
type Plugin interface {
	// Describe returns the plugin's descriptor. It must be constant for
	// the life of the process.
	Describe() Descriptor

	// Setup wires the plugin's flags onto its runtime's sub-command and
	// seeds its configuration defaults. It runs once, when the runtime is
	// created and before any argument parsing.
	Setup(rt *Runtime) error

	// Run performs the plugin's action. It is invoked at most once per
	// process invocation, only when the dispatcher selected this plugin.
	Run(ctx context.Context, inv Invocation) error

	// Finish runs after the selected plugin's Run completed or failed. It
	// is invoked exactly once per process invocation for every registered
	// plugin, whether or not the plugin was selected.
	Finish(ctx context.Context) error
}

// Base provides the default no-op Run and Finish so plugins only override
// the hooks they need.
type Base struct{}

// Run is a no-op.
func (Base) Run(context.Context, Invocation) error { return nil }

// Finish is a no-op.
func (Base) Finish(context.Context) error { return nil }

// DuplicateNameError reports a second registration under an existing
// name. The first registration stays in effect.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("plugin %q is already registered", e.Name)
}

// NotFoundError reports a lookup for an unknown plugin name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown plugin %q", e.Name)
}
