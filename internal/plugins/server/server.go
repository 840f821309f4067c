// Package server is the server-build management plugin: it prints build
// configuration, drives update runs through the orchestrator, and
// uninstalls builds interactively.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/builds"
	"github.com/warden-sh/warden/internal/config"
	"github.com/warden-sh/warden/internal/console"
	"github.com/warden-sh/warden/internal/orchestrate"
	"github.com/warden-sh/warden/internal/plugin"
	"github.com/warden-sh/warden/internal/worlds"
)

const defaultUpdateMessage = "The server is going down for an update."

// Plugin manages server builds. It is selected as the "server"
// sub-command and acts on the builds chosen with -s/-S.
type Plugin struct {
	plugin.Base

	worlds    *worlds.Registry
	builds    *builds.Registry
	store     *config.Store
	confirmer console.Confirmer
	out       io.Writer
	log       *zap.Logger

	updateMessage string

	showConf  bool
	update    bool
	force     bool
	uninstall bool
	workers   int
}

// New creates the server plugin.
func New(worldReg *worlds.Registry, buildReg *builds.Registry, store *config.Store, confirmer console.Confirmer, out io.Writer, log *zap.Logger) *Plugin {
	return &Plugin{
		worlds:    worldReg,
		builds:    buildReg,
		store:     store,
		confirmer: confirmer,
		out:       out,
		log:       log,
	}
}

// Describe returns the plugin descriptor.
func (p *Plugin) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "server",
		Summary: "manage the server builds and their configuration",
		Version: "2.0.0",
	}
}

// Setup seeds the update message option and wires the plugin flags.
func (p *Plugin) Setup(rt *plugin.Runtime) error {
	p.updateMessage = rt.Config().Default("update_message", defaultUpdateMessage)

	cmd := rt.Command()
	cmd.Flags().BoolVar(&p.showConf, "configuration", false,
		"print the configuration of the selected server builds")
	cmd.Flags().BoolVar(&p.update, "update", false,
		"update the selected server builds, stopping and restarting their worlds")
	cmd.Flags().BoolVar(&p.force, "force-update", false,
		"like --update, but kill worlds that ignore the graceful stop")
	cmd.Flags().BoolVar(&p.uninstall, "uninstall", false,
		"remove the selected server builds")
	cmd.Flags().IntVar(&p.workers, "workers", 1,
		"stop and restart up to N worlds at once")
	cmd.MarkFlagsMutuallyExclusive("update", "force-update")

	return nil
}

// Run acts on every selected build in turn. Update failures are collected
// per build and reported at the end; an aborted uninstall short-circuits
// the remaining builds.
func (p *Plugin) Run(ctx context.Context, inv plugin.Invocation) error {
	if len(inv.Builds) == 0 {
		return fmt.Errorf("no server build selected, use -s NAME or -S")
	}

	var failed []string
	for _, b := range inv.Builds {
		if p.showConf {
			console.WriteOptions(p.out, b.Name()+" - configuration:", b.Options())
		}

		if p.update || p.force {
			if !p.runUpdate(ctx, b) {
				failed = append(failed, b.Name())
			}
		}

		if p.uninstall {
			err := p.uninstallBuild(ctx, b)
			if errors.Is(err, console.ErrAborted) {
				return err
			}
			if err != nil {
				fmt.Fprintf(p.out, "%s - uninstall failed: %v\n", b.Name(), err)
				failed = append(failed, b.Name())
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("server builds with failures: %s", strings.Join(failed, ", "))
	}
	return nil
}

// runUpdate drives one orchestration run and reports whether it fully
// succeeded.
func (p *Plugin) runUpdate(ctx context.Context, b builds.Build) bool {
	orch := orchestrate.New(b, p.worlds, p.log,
		orchestrate.WithForce(p.force),
		orchestrate.WithMessage(p.updateMessage),
		orchestrate.WithReporter(console.NewDownloadReporter(p.out)),
		orchestrate.WithWorkers(p.workers),
	)

	rec := orch.Run(ctx)
	console.WriteRunSummary(p.out, rec)
	return !rec.Failed()
}

// uninstallBuild removes a build after the user picked a replacement.
// Worlds bound to the removed build are rebound to the replacement in the
// configuration.
func (p *Plugin) uninstallBuild(ctx context.Context, b builds.Build) error {
	var candidates []string
	for _, name := range p.builds.Names() {
		if name != b.Name() {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no other server build could replace %q", b.Name())
	}

	ok, err := p.confirmer.Confirm(ctx,
		fmt.Sprintf("Are you sure that you want to uninstall the server build %q?", b.Name()))
	if err != nil {
		return err
	}
	if !ok {
		return console.ErrAborted
	}

	choice, err := p.confirmer.Value(ctx,
		fmt.Sprintf("Which server build should replace %q? (one of: %s)",
			b.Name(), strings.Join(candidates, ", ")),
		func(v string) error {
			for _, name := range candidates {
				if v == name {
					return nil
				}
			}
			return fmt.Errorf("%q is not an available server build", v)
		})
	if err != nil {
		return err
	}

	replacement, err := p.builds.Get(choice)
	if err != nil {
		return err
	}

	if err := b.Uninstall(ctx, replacement); err != nil {
		if errors.Is(err, builds.ErrBuildInUse) {
			return fmt.Errorf("server build %q is still running a world: %w", b.Name(), err)
		}
		return err
	}

	rebound := p.store.RebindWorlds(b.Name(), replacement.Name())
	fmt.Fprintf(p.out, "%s - uninstalled, %d world(s) now bound to %q\n",
		b.Name(), rebound, replacement.Name())
	return nil
}
