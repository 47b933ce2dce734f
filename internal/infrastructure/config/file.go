package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// durations holds the duration keys of a config file, which TOML has no
// native type for.
type durations struct {
	Volume struct {
		GuardCooldown string `toml:"guard_cooldown"`
	} `toml:"volume"`
	Script struct {
		Timeout string `toml:"timeout"`
	} `toml:"script"`
}

// LoadFile loads configuration from the environment and then applies the
// TOML file at path on top. Keys present in the file win.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Merge(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the TOML file at path onto c and validates the result.
// Durations are written as Go duration strings, e.g. timeout = "2s".
func (c *Config) Merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := c.MergeTOML(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// MergeTOML overlays TOML data onto c and validates the result.
func (c *Config) MergeTOML(data []byte) error {
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	var d durations
	if err := toml.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := setDuration(&c.Volume.GuardCooldown, "volume.guard_cooldown", d.Volume.GuardCooldown); err != nil {
		return err
	}
	if err := setDuration(&c.Script.Timeout, "script.timeout", d.Script.Timeout); err != nil {
		return err
	}
	return c.Validate()
}

func setDuration(dst *time.Duration, key, raw string) error {
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
