// Package worldsctl is the "worlds" plugin: status, start, stop and
// console access for the selected worlds.
package worldsctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/plugin"
	"github.com/warden-sh/warden/internal/worlds"
)

// Plugin drives the selected worlds directly. It is selected as the
// "worlds" sub-command and acts on the worlds chosen with -w/-W.
type Plugin struct {
	plugin.Base

	out io.Writer
	log *zap.Logger

	status    bool
	start     bool
	stop      bool
	forceStop bool
	send      string
}

// New creates the worlds plugin.
func New(out io.Writer, log *zap.Logger) *Plugin {
	return &Plugin{out: out, log: log}
}

// Describe returns the plugin descriptor. The worlds plugin finishes
// early so later plugins observe the final world states.
func (p *Plugin) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:           "worlds",
		Summary:        "show and control the world processes",
		InitPriority:   -10,
		FinishPriority: -10,
		Version:        "2.0.0",
	}
}

// Setup wires the plugin flags.
func (p *Plugin) Setup(rt *plugin.Runtime) error {
	cmd := rt.Command()
	cmd.Flags().BoolVar(&p.status, "status", false, "print the online status of the selected worlds")
	cmd.Flags().BoolVar(&p.start, "start", false, "start the selected worlds")
	cmd.Flags().BoolVar(&p.stop, "stop", false, "stop the selected worlds")
	cmd.Flags().BoolVar(&p.forceStop, "force-stop", false, "stop the selected worlds, killing them if needed")
	cmd.Flags().StringVar(&p.send, "send", "", "send a console command to the selected worlds")
	cmd.MarkFlagsMutuallyExclusive("start", "stop", "force-stop")

	return nil
}

// Run applies the requested operations to every selected world. Failures
// are per world and never abort the sweep.
func (p *Plugin) Run(ctx context.Context, inv plugin.Invocation) error {
	if len(inv.Worlds) == 0 {
		return fmt.Errorf("no world selected, use -w NAME or -W")
	}

	var failed []string
	for _, w := range inv.Worlds {
		if !p.runOne(ctx, w) {
			failed = append(failed, w.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("worlds with failures: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (p *Plugin) runOne(ctx context.Context, w worlds.World) bool {
	ok := true

	if p.status {
		state := "offline"
		if w.IsOnline(ctx) {
			state = "online"
		}
		fmt.Fprintf(p.out, "%s - %s\n", w.Name(), state)
	}

	if p.start {
		err := w.Start(ctx)
		if errors.Is(err, worlds.ErrWorldOnline) {
			fmt.Fprintf(p.out, "%s - already online\n", w.Name())
			err = nil
		}
		if err != nil {
			fmt.Fprintf(p.out, "%s - start failed: %v\n", w.Name(), err)
			ok = false
		} else if !p.status {
			fmt.Fprintf(p.out, "%s - started\n", w.Name())
		}
	}

	if p.stop || p.forceStop {
		if err := w.Stop(ctx, p.forceStop); err != nil {
			fmt.Fprintf(p.out, "%s - stop failed: %v\n", w.Name(), err)
			ok = false
		} else {
			fmt.Fprintf(p.out, "%s - stopped\n", w.Name())
		}
	}

	if p.send != "" {
		if err := w.SendCommand(ctx, p.send); err != nil {
			fmt.Fprintf(p.out, "%s - send failed: %v\n", w.Name(), err)
			ok = false
		}
	}

	return ok
}
