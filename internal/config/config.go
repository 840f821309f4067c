// Package config loads and persists the warden configuration file: fleet
// definitions (worlds, server builds) plus one option section per plugin.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// WorldConfig defines one managed world.
type WorldConfig struct {
	// Server names the build this world runs.
	Server string `yaml:"server"`
	// Dir is the world's working directory.
	Dir string `yaml:"dir"`
	// StartCommand launches the server process, run with /bin/sh -c.
	StartCommand string `yaml:"start_command"`
	// StopCommand shuts the server down from its console. Optional.
	StopCommand string `yaml:"stop_command,omitempty"`
	// StopTimeoutSeconds bounds a graceful stop. Optional, defaults to 10.
	StopTimeoutSeconds int `yaml:"stop_timeout,omitempty"`
}

// ServerConfig defines one installable server build.
type ServerConfig struct {
	// URL is the download location of the build artifact.
	URL string `yaml:"url"`
	// Install is the path the artifact is installed at.
	Install string `yaml:"install"`
	// Options are free-form build options.
	Options map[string]string `yaml:"options,omitempty"`
}

// file is the on-disk document shape.
type file struct {
	LogLevel string                  `yaml:"log_level,omitempty"`
	DataDir  string                  `yaml:"data_dir,omitempty"`
	Worlds   map[string]WorldConfig  `yaml:"worlds,omitempty"`
	Servers  map[string]ServerConfig `yaml:"servers,omitempty"`
	Plugins  map[string]Section      `yaml:"plugins,omitempty"`
}

// Section is one plugin's option map. Sections are live references into
// the store: writes through a Section are persisted by Store.Save.
type Section map[string]string

// Get returns the value for key, or "" if absent.
func (s Section) Get(key string) string { return s[key] }

// Default returns the value for key, storing and returning fallback if
// the key is absent. This mirrors how plugins seed their documented
// defaults into the configuration on first run.
func (s Section) Default(key, fallback string) string {
	if v, ok := s[key]; ok {
		return v
	}
	s[key] = fallback
	return fallback
}

// Set stores a value.
func (s Section) Set(key, value string) { s[key] = value }

// Store owns the configuration document and its path. Section creation is
// lazy and idempotent; the mutex guards first access because plugin code
// may run inside orchestration worker pools.
type Store struct {
	path string

	mu   sync.Mutex
	file file
}

// Load reads the configuration at path. A missing file yields an empty
// store that Save will create.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return s, nil
}

// Path returns the location of the configuration file.
func (s *Store) Path() string { return s.path }

// LogLevel returns the configured log level, or "" for the default.
func (s *Store) LogLevel() string { return s.file.LogLevel }

// DataDir returns the root directory for plugin data. Defaults to a
// "plugins" directory next to the configuration file.
func (s *Store) DataDir() string {
	if s.file.DataDir != "" {
		return s.file.DataDir
	}
	return filepath.Join(filepath.Dir(s.path), "plugins")
}

// Worlds returns the configured world definitions.
func (s *Store) Worlds() map[string]WorldConfig {
	out := make(map[string]WorldConfig, len(s.file.Worlds))
	for name, w := range s.file.Worlds {
		out[name] = w
	}
	return out
}

// Servers returns the configured server build definitions.
func (s *Store) Servers() map[string]ServerConfig {
	out := make(map[string]ServerConfig, len(s.file.Servers))
	for name, b := range s.file.Servers {
		out[name] = b
	}
	return out
}

// Section returns the named plugin section, creating it if absent.
// Creation is idempotent: a second call returns the same live map.
func (s *Store) Section(name string) Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file.Plugins == nil {
		s.file.Plugins = make(map[string]Section)
	}
	sec, ok := s.file.Plugins[name]
	if !ok {
		sec = make(Section)
		s.file.Plugins[name] = sec
	}
	return sec
}

// HasSection reports whether a plugin section exists without creating it.
func (s *Store) HasSection(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.file.Plugins[name]
	return ok
}

// RemoveSection deletes a plugin section. Removing an absent section is a
// no-op.
func (s *Store) RemoveSection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.file.Plugins, name)
}

// RebindWorlds points every world bound to the build from at the build
// to, returning how many worlds were rebound. Used when a server build is
// uninstalled in favor of a replacement.
func (s *Store) RebindWorlds(from, to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rebound := 0
	for name, w := range s.file.Worlds {
		if w.Server == from {
			w.Server = to
			s.file.Worlds[name] = w
			rebound++
		}
	}
	return rebound
}

// Save writes the document back to its path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(&s.file)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}
