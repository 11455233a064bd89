// Package config loads server configuration from a YAML file with
// environment variable overrides. Environment values win over file
// values, which win over defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that parses Go duration strings
// ("300ms", "2s") from both YAML and environment values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; the env parser
// uses it for overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds every tunable of the kinetic server and engine.
type Config struct {
	// Listen is the HTTP/WebSocket bind address.
	Listen string `yaml:"listen" env:"KINETIC_LISTEN"`

	// DBPath is the SQLite database file holding projects and action
	// logs. ":memory:" is accepted for throwaway servers.
	DBPath string `yaml:"dbPath" env:"KINETIC_DB_PATH"`

	// MaxLogEntries caps a project's action log; 0 disables the cap.
	MaxLogEntries int `yaml:"maxLogEntries" env:"KINETIC_MAX_LOG_ENTRIES"`

	// CoalesceWindow is the editor history coalescing window.
	CoalesceWindow Duration `yaml:"coalesceWindow" env:"KINETIC_COALESCE_WINDOW"`

	// MaxHistory bounds the editor undo depth.
	MaxHistory int `yaml:"maxHistory" env:"KINETIC_MAX_HISTORY"`

	// SnapThreshold is the default snap distance in scene units.
	SnapThreshold float64 `yaml:"snapThreshold" env:"KINETIC_SNAP_THRESHOLD"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose" env:"KINETIC_VERBOSE"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Listen:         ":8787",
		DBPath:         "kinetic.db",
		MaxLogEntries:  0,
		CoalesceWindow: Duration(300 * time.Millisecond),
		MaxHistory:     200,
		SnapThreshold:  10,
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in increasing precedence. An empty path skips the file
// layer; a named file that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db path is empty")
	}
	if c.CoalesceWindow < 0 {
		return fmt.Errorf("config: coalesce window is negative")
	}
	if c.MaxHistory < 1 {
		return fmt.Errorf("config: max history must be at least 1")
	}
	if c.SnapThreshold < 0 {
		return fmt.Errorf("config: snap threshold is negative")
	}
	return nil
}
