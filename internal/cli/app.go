package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/warden-sh/warden/internal/builds"
	"github.com/warden-sh/warden/internal/config"
	"github.com/warden-sh/warden/internal/console"
	"github.com/warden-sh/warden/internal/logging"
	"github.com/warden-sh/warden/internal/plugin"
	"github.com/warden-sh/warden/internal/plugins/pluginsctl"
	serverplugin "github.com/warden-sh/warden/internal/plugins/server"
	"github.com/warden-sh/warden/internal/plugins/worldsctl"
	"github.com/warden-sh/warden/internal/worlds"
)

// BuildInfo carries the version stamps injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// DefaultConfigPath resolves the configuration file location: the
// WARDEN_CONFIG environment variable when set, otherwise
// ~/.config/warden/warden.yml.
func DefaultConfigPath() string {
	if path := os.Getenv("WARDEN_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "warden.yml"
	}
	return filepath.Join(home, ".config", "warden", "warden.yml")
}

// LoadApp assembles the whole application from a configuration file:
// store, world and build registries, the built-in plugins with their
// runtimes, and finally the dispatcher. Plugins are loaded before any
// argument parsing because the command tree needs them to exist.
func LoadApp(configPath string, info BuildInfo, in io.Reader, out io.Writer) (*Dispatcher, *zap.Logger, error) {
	store, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(store.LogLevel())
	if err != nil {
		return nil, nil, err
	}

	worldReg := loadWorlds(store, log)
	buildReg := loadBuilds(store, worldReg, log)
	confirmer := console.NewTerminal(in, out)

	registry := plugin.NewRegistry()
	loaded := []plugin.Plugin{
		worldsctl.New(out, log),
		serverplugin.New(worldReg, buildReg, store, confirmer, out, log),
		pluginsctl.New(registry, confirmer, out, log),
	}
	for _, p := range loaded {
		rt, err := plugin.NewRuntime(p, store, store.DataDir(), log)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(rt); err != nil {
			return nil, nil, err
		}
	}
	for _, rt := range registry.OrderedForInit() {
		if err := rt.Setup(); err != nil {
			return nil, nil, err
		}
	}

	dispatcher := NewDispatcher(Options{
		Plugins: registry,
		Worlds:  worldReg,
		Builds:  buildReg,
		Store:   store,
		Log:     log,
		Out:     out,
		Version: info.Version,
		Commit:  info.Commit,
		Date:    info.Date,
	})
	return dispatcher, log, nil
}

func loadWorlds(store *config.Store, log *zap.Logger) *worlds.Registry {
	var all []worlds.World
	for name, wc := range store.Worlds() {
		all = append(all, worlds.NewScreenWorld(name, worlds.ScreenOptions{
			Build:        wc.Server,
			Dir:          wc.Dir,
			StartCommand: wc.StartCommand,
			StopCommand:  wc.StopCommand,
			StopTimeout:  time.Duration(wc.StopTimeoutSeconds) * time.Second,
		}, log))
	}
	return worlds.NewRegistry(all)
}

func loadBuilds(store *config.Store, worldReg *worlds.Registry, log *zap.Logger) *builds.Registry {
	inUse := func(ctx context.Context, build string) bool {
		return len(worldReg.OnlineBoundTo(ctx, build)) > 0
	}

	var all []builds.Build
	for name, sc := range store.Servers() {
		all = append(all, builds.NewHTTPBuild(name, sc.URL, sc.Install, sc.Options, inUse, log))
	}
	return builds.NewRegistry(all)
}

// Run is the process entry point used by main: it loads the application
// and dispatches the arguments.
func Run(ctx context.Context, argv []string, info BuildInfo) int {
	dispatcher, log, err := LoadApp(DefaultConfigPath(), info, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer log.Sync()

	return dispatcher.Dispatch(ctx, argv)
}
