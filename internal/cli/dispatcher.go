// Package cli is the top-level driver: it turns the plugin registry into
// a cobra command tree, resolves the global world/server selection,
// invokes the selected plugin and sweeps finish over every plugin.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/builds"
	"github.com/warden-sh/warden/internal/config"
	"github.com/warden-sh/warden/internal/console"
	"github.com/warden-sh/warden/internal/plugin"
	"github.com/warden-sh/warden/internal/worlds"
)

// UsageError reports bad command-line input. It is fatal and reported
// before any plugin action runs.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return fmt.Sprintf("usage error: %v", e.Err) }

func (e *UsageError) Unwrap() error { return e.Err }

// Options wires a Dispatcher.
type Options struct {
	Plugins *plugin.Registry
	Worlds  *worlds.Registry
	Builds  *builds.Registry
	Store   *config.Store
	Log     *zap.Logger
	Out     io.Writer

	Version string
	Commit  string
	Date    string
}

// Dispatcher drives one process invocation end to end.
type Dispatcher struct {
	plugins *plugin.Registry
	worlds  *worlds.Registry
	builds  *builds.Registry
	store   *config.Store
	log     *zap.Logger
	out     io.Writer

	version string
	commit  string
	date    string

	worldNames []string
	allWorlds  bool
	buildNames []string
	allBuilds  bool
}

// NewDispatcher creates a dispatcher over the given registries.
func NewDispatcher(opts Options) *Dispatcher {
	return &Dispatcher{
		plugins: opts.Plugins,
		worlds:  opts.Worlds,
		builds:  opts.Builds,
		store:   opts.Store,
		log:     opts.Log.Named("dispatch"),
		out:     opts.Out,
		version: opts.Version,
		commit:  opts.Commit,
		date:    opts.Date,
	}
}

// Dispatch parses argv, runs the selected plugin, then unconditionally
// sweeps finish over every registered plugin in finish-priority order and
// persists the configuration. The returned exit status is zero only when
// the run step and every finish step succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, argv []string) int {
	root := d.rootCommand()
	root.SetArgs(argv)
	root.SetOut(d.out)
	root.SetErr(d.out)

	exit := 0
	switch err := root.ExecuteContext(ctx); {
	case err == nil:
	case errors.Is(err, console.ErrAborted):
		// The user cancelled an interactive step. Nothing failed, and the
		// finish sweep below still runs.
		fmt.Fprintln(d.out, "aborted.")
	default:
		fmt.Fprintf(d.out, "error: %v\n", err)
		exit = 1
	}

	// Every registered plugin gets its finish call, whatever happened
	// during the run. A failing finish never blocks the remaining ones.
	for _, rt := range d.plugins.OrderedForFinish() {
		if err := rt.Finish(ctx); err != nil {
			d.log.Error("plugin finish failed",
				zap.String("plugin", rt.Name()), zap.Error(err))
			fmt.Fprintf(d.out, "error: finish of plugin %q: %v\n", rt.Name(), err)
			exit = 1
		}
	}

	if err := d.store.Save(); err != nil {
		d.log.Error("saving configuration failed", zap.Error(err))
		fmt.Fprintf(d.out, "error: %v\n", err)
		exit = 1
	}

	return exit
}

// rootCommand builds the command tree: global selection flags on the
// root, one sub-command per registered plugin.
func (d *Dispatcher) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "warden [flags] <plugin> [plugin flags]",
		Short: "warden - plugin-driven game server fleet manager",
		Long: `Warden manages a fleet of game server worlds, each bound to one
installable server build, through a set of plugins. Global flags select
the target worlds and server builds; the plugin named on the command line
decides what happens to them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", d.version, d.commit, d.date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Args: cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &UsageError{Err: errors.New("no plugin selected")}
			}
			_, err := d.plugins.Get(args[0])
			if err == nil {
				// Known name that cobra did not resolve; should not happen.
				err = fmt.Errorf("plugin %q could not be dispatched", args[0])
			}
			return &UsageError{Err: err}
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&d.worldNames, "world", "w", nil, "select a world (repeatable)")
	pf.BoolVarP(&d.allWorlds, "all-worlds", "W", false, "select every world")
	pf.StringArrayVarP(&d.buildNames, "server", "s", nil, "select a server build (repeatable)")
	pf.BoolVarP(&d.allBuilds, "all-server", "S", false, "select every server build")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	for _, rt := range d.plugins.OrderedForInit() {
		rt := rt
		cmd := rt.Command()
		cmd.RunE = func(c *cobra.Command, _ []string) error {
			inv, err := d.selection()
			if err != nil {
				return err
			}
			return rt.Run(c.Context(), inv)
		}
		root.AddCommand(cmd)
	}

	return root
}

// selection resolves the global flags into the invocation targets. The
// flag pairs are mutually exclusive; cobra cannot enforce that across
// sub-commands for persistent flags, so it is checked here.
func (d *Dispatcher) selection() (plugin.Invocation, error) {
	if len(d.worldNames) > 0 && d.allWorlds {
		return plugin.Invocation{}, &UsageError{Err: errors.New("--world and --all-worlds are mutually exclusive")}
	}
	if len(d.buildNames) > 0 && d.allBuilds {
		return plugin.Invocation{}, &UsageError{Err: errors.New("--server and --all-server are mutually exclusive")}
	}

	ws, err := d.worlds.Select(d.worldNames, d.allWorlds)
	if err != nil {
		return plugin.Invocation{}, &UsageError{Err: err}
	}
	bs, err := d.builds.Select(d.buildNames, d.allBuilds)
	if err != nil {
		return plugin.Invocation{}, &UsageError{Err: err}
	}

	return plugin.Invocation{Worlds: ws, Builds: bs}, nil
}
