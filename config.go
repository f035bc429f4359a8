package patchctl

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from a YAML file.
// Every field has a sensible default; a missing file is not an error.
type Config struct {
	// Card is matched against card names when no explicit card is given
	Card string `yaml:"card"`

	Snap SnapConfig   `yaml:"snap"`
	Grid FallbackGrid `yaml:"grid"`

	LayoutDir string `yaml:"layout_dir"`
	PresetDir string `yaml:"preset_dir"`

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	stateDir := defaultStateDir()
	return &Config{
		Card:      "babyface",
		Snap:      DefaultSnapConfig(),
		Grid:      DefaultFallbackGrid(),
		LayoutDir: filepath.Join(stateDir, "layouts"),
		PresetDir: filepath.Join(stateDir, "presets"),
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Snap.DistancePx < 0 {
		return fmt.Errorf("snap.distance_px must not be negative")
	}
	if c.Snap.MinOverlapPx < 0 {
		return fmt.Errorf("snap.min_overlap_px must not be negative")
	}
	if c.Grid.BlockW <= 0 || c.Grid.BlockH <= 0 {
		return fmt.Errorf("grid block size must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}
	return nil
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "patchctl")
	}
	return ".patchctl"
}
