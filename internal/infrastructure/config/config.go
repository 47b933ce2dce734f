// Package config loads runtime configuration from environment variables
// and an optional TOML file.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend names accepted by VOLUME_BACKEND.
const (
	BackendMemory = "memory"
	BackendHost   = "host"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Volume    VolumeConfig    `toml:"volume"`
	Script    ScriptConfig    `toml:"script"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string `envconfig:"PORT" default:"8000" toml:"port"`
	Host     string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
	Compress bool   `envconfig:"SERVER_COMPRESS" default:"true" toml:"compress"`
}

// VolumeConfig describes the mounted volume and the file layer limits.
type VolumeConfig struct {
	Backend   string `envconfig:"VOLUME_BACKEND" default:"memory" toml:"backend"`
	Dir       string `envconfig:"VOLUME_DIR" default:"./volume" toml:"dir"`
	Capacity  uint64 `envconfig:"VOLUME_CAPACITY" default:"1048576" toml:"capacity"`
	PageSize  uint64 `envconfig:"VOLUME_PAGE_SIZE" default:"256" toml:"page_size"`
	PhysAddr  uint32 `envconfig:"VOLUME_PHYS_ADDR" default:"1048576" toml:"phys_addr"`
	ChunkSize int    `envconfig:"VOLUME_CHUNK_SIZE" default:"1024" toml:"chunk_size"`
	NameMax   int    `envconfig:"VOLUME_NAME_MAX" default:"32" toml:"name_max"`

	// GuardCooldown is how long the API refuses volume work after a
	// fatal error before letting one trial request through.
	GuardCooldown time.Duration `envconfig:"VOLUME_GUARD_COOLDOWN" default:"30s" toml:"-"`
}

// ScriptConfig holds scripting runtime configuration.
type ScriptConfig struct {
	Timeout time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"5s" toml:"-"`
	Console bool          `envconfig:"SCRIPT_CONSOLE" default:"true" toml:"console"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
	PerClient         bool `envconfig:"RATE_LIMIT_PER_CLIENT" default:"false" toml:"per_client"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects settings the file layer cannot operate with.
func (c *Config) Validate() error {
	switch c.Volume.Backend {
	case BackendMemory, BackendHost:
	default:
		return fmt.Errorf("invalid VOLUME_BACKEND %q", c.Volume.Backend)
	}
	if c.Volume.ChunkSize <= 0 {
		return fmt.Errorf("VOLUME_CHUNK_SIZE must be positive, got %d", c.Volume.ChunkSize)
	}
	if c.Volume.NameMax <= 1 {
		return fmt.Errorf("VOLUME_NAME_MAX must be greater than 1, got %d", c.Volume.NameMax)
	}
	if c.Volume.PageSize == 0 {
		return fmt.Errorf("VOLUME_PAGE_SIZE must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     "8000",
			Host:     "0.0.0.0",
			Compress: true,
		},
		Volume: VolumeConfig{
			Backend:       BackendMemory,
			Dir:           "./volume",
			Capacity:      1 << 20,
			PageSize:      256,
			PhysAddr:      0x100000,
			ChunkSize:     1024,
			NameMax:       32,
			GuardCooldown: 30 * time.Second,
		},
		Script: ScriptConfig{
			Timeout: 5 * time.Second,
			Console: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
			PerClient:         false,
		},
	}
}
