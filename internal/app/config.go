package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vk/meshweave/internal/registry"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string `toml:"-"` // graph document, given per command

	ManifestsPath string `toml:"manifests"` // directory of extra operation manifests
	Library       string `toml:"library"`   // Lua table the program calls operations on

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Library:   "ops",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfigFile overlays the settings of a TOML file onto base. Unknown
// keys are an error so that typos do not pass silently.
func LoadConfigFile(path string, base Config) (Config, error) {
	md, err := toml.DecodeFile(path, &base)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return base, nil
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log-level %q: must be one of %s", cfg.LogLevel, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.Library == "" {
		return nil, errors.New("library is a required configuration field and cannot be empty")
	}
	if !registry.IsIdentifier(cfg.Library) {
		return nil, fmt.Errorf("invalid library %q: must be a Lua identifier", cfg.Library)
	}
	return &cfg, nil
}
