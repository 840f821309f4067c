package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/config"
	"github.com/warden-sh/warden/internal/console"
)

// Runtime wraps one plugin instance and isolates its state: its
// configuration section, its data directory, and its sub-command. A
// runtime is created once when the plugin is loaded, before argument
// parsing, and lives until process exit.
type Runtime struct {
	plugin   Plugin
	desc     Descriptor
	store    *config.Store
	dataRoot string
	cmd      *cobra.Command
	log      *zap.Logger

	mu    sync.Mutex
	setUp bool
	ran   bool
}

// NewRuntime creates the runtime for a plugin. The plugin's Setup hook is
// not run here; the dispatcher sweeps Setup over all runtimes in init
// priority order once registration is complete.
func NewRuntime(p Plugin, store *config.Store, dataRoot string, log *zap.Logger) (*Runtime, error) {
	desc := p.Describe()
	if desc.Name == "" {
		return nil, fmt.Errorf("plugin descriptor has no name")
	}

	rt := &Runtime{
		plugin:   p,
		desc:     desc,
		store:    store,
		dataRoot: dataRoot,
		log:      log.Named("plugin").With(zap.String("plugin", desc.Name)),
	}
	rt.cmd = &cobra.Command{
		Use:           desc.Name,
		Short:         desc.Summary,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	return rt, nil
}

// Setup runs the plugin's Setup hook once. Repeated calls are no-ops so
// the init sweep stays idempotent.
func (rt *Runtime) Setup() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.setUp {
		return nil
	}
	if err := rt.plugin.Setup(rt); err != nil {
		return fmt.Errorf("setup of plugin %q: %w", rt.desc.Name, err)
	}
	rt.setUp = true

	rt.log.Debug("runtime initialised")
	return nil
}

// Name returns the plugin name.
func (rt *Runtime) Name() string { return rt.desc.Name }

// Describe returns the plugin descriptor.
func (rt *Runtime) Describe() Descriptor { return rt.desc }

// Command returns the plugin's cobra sub-command. Setup attaches the
// plugin flags here; the dispatcher attaches it to the root command.
func (rt *Runtime) Command() *cobra.Command { return rt.cmd }

// Config returns the plugin's configuration section, creating it on
// first access. Repeated calls return the same live section.
func (rt *Runtime) Config() config.Section {
	return rt.store.Section(rt.desc.Name)
}

// DataDir returns the plugin's data directory. With create it builds the
// directory tree on first use; without, it only returns the path.
func (rt *Runtime) DataDir(create bool) (string, error) {
	dir := filepath.Join(rt.dataRoot, rt.desc.Name)

	if create {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create data directory of plugin %q: %w", rt.desc.Name, err)
			}
			rt.log.Info("created plugin data directory", zap.String("dir", dir))
		}
	}
	return dir, nil
}

// Run invokes the plugin's action. A second call within the same process
// invocation is a dispatcher bug and fails.
func (rt *Runtime) Run(ctx context.Context, inv Invocation) error {
	rt.mu.Lock()
	if rt.ran {
		rt.mu.Unlock()
		return fmt.Errorf("plugin %q was already run in this invocation", rt.desc.Name)
	}
	rt.ran = true
	rt.mu.Unlock()

	rt.log.Debug("running plugin")
	return rt.plugin.Run(ctx, inv)
}

// Finish invokes the plugin's finish hook.
func (rt *Runtime) Finish(ctx context.Context) error {
	rt.log.Debug("finishing plugin")
	return rt.plugin.Finish(ctx)
}

// Uninstall interactively removes the plugin. Every removal is confirmed
// on its own and independently skippable, so a partial uninstall (say,
// configuration kept but data removed) is a valid terminal state. The
// first question guards the whole flow: declining it returns
// console.ErrAborted and nothing is touched.
func (rt *Runtime) Uninstall(ctx context.Context, confirmer console.Confirmer) error {
	rt.log.Info("uninstalling plugin")

	ok, err := confirmer.Confirm(ctx, fmt.Sprintf("Do you really want to remove the plugin %q?", rt.desc.Name))
	if err != nil {
		return err
	}
	if !ok {
		rt.log.Info("uninstall cancelled")
		return console.ErrAborted
	}

	if rt.desc.ArtifactPath != "" {
		if err := os.Remove(rt.desc.ArtifactPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove artifact of plugin %q: %w", rt.desc.Name, err)
		}
		rt.log.Info("removed plugin artifact", zap.String("path", rt.desc.ArtifactPath))
	}

	ok, err = confirmer.Confirm(ctx, "Do you want to remove the data directory?")
	if err != nil {
		return err
	}
	if ok {
		dir, err := rt.DataDir(false)
		if err == nil {
			err = os.RemoveAll(dir)
		}
		if err != nil {
			return fmt.Errorf("remove data directory of plugin %q: %w", rt.desc.Name, err)
		}
		rt.log.Info("removed plugin data directory", zap.String("dir", dir))
	}

	ok, err = confirmer.Confirm(ctx, "Do you want to remove the configuration?")
	if err != nil {
		return err
	}
	if ok {
		rt.store.RemoveSection(rt.desc.Name)
		rt.log.Info("removed plugin configuration section")
	}

	return nil
}
