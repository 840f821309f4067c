// Package pluginsctl is the "plugins" plugin: it lists the loaded
// plugins and drives the interactive plugin uninstall.
package pluginsctl

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/console"
	"github.com/warden-sh/warden/internal/plugin"
)

// Plugin manages the plugin set itself. It is selected as the "plugins"
// sub-command and acts on plugin names, not on worlds or builds.
type Plugin struct {
	plugin.Base

	registry  *plugin.Registry
	confirmer console.Confirmer
	out       io.Writer
	log       *zap.Logger

	list      bool
	uninstall string
}

// New creates the plugins plugin.
func New(registry *plugin.Registry, confirmer console.Confirmer, out io.Writer, log *zap.Logger) *Plugin {
	return &Plugin{
		registry:  registry,
		confirmer: confirmer,
		out:       out,
		log:       log,
	}
}

// Describe returns the plugin descriptor.
func (p *Plugin) Describe() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "plugins",
		Summary: "list the loaded plugins and uninstall them",
		Version: "2.0.0",
	}
}

// Setup wires the plugin flags.
func (p *Plugin) Setup(rt *plugin.Runtime) error {
	cmd := rt.Command()
	cmd.Flags().BoolVar(&p.list, "list", false, "list every loaded plugin")
	cmd.Flags().StringVar(&p.uninstall, "uninstall", "", "remove the named plugin interactively")
	cmd.MarkFlagsMutuallyExclusive("list", "uninstall")

	return nil
}

// Run lists or uninstalls plugins.
func (p *Plugin) Run(ctx context.Context, _ plugin.Invocation) error {
	if p.uninstall != "" {
		return p.uninstallPlugin(ctx, p.uninstall)
	}

	// Listing is the default action.
	for _, rt := range p.registry.All() {
		desc := rt.Describe()
		fmt.Fprintf(p.out, "%s (%s) - %s\n", desc.Name, desc.Version, desc.Summary)
	}
	return nil
}

func (p *Plugin) uninstallPlugin(ctx context.Context, name string) error {
	if name == p.Describe().Name {
		return fmt.Errorf("the plugin %q cannot uninstall itself", name)
	}

	rt, err := p.registry.Get(name)
	if err != nil {
		return err
	}

	if err := rt.Uninstall(ctx, p.confirmer); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "%s - uninstalled\n", name)
	return nil
}
