package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration accepts both Go duration strings ("30s", "5m") and bare integer
// second values in the TOML file.
type Duration time.Duration

// UnmarshalText lets Viper decode either notation.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue returns the plain time.Duration for callers.
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Seconds returns the whole-second value used for Cache-Control headers.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

// GlobalConfig describes process-wide behavior shared by every tool route.
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	StoragePath     string   `mapstructure:"StoragePath"`
	StorageBackend  string   `mapstructure:"StorageBackend"`
	CacheTTL        Duration `mapstructure:"CacheTTL"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	TaskTimeout     Duration `mapstructure:"TaskTimeout"`
	DrainTimeout    Duration `mapstructure:"DrainTimeout"`
}

// ToolConfig maps one logical tool name onto the origin URL serving its
// script. CacheTTL overrides the global TTL when set.
type ToolConfig struct {
	Name     string   `mapstructure:"Name"`
	Origin   string   `mapstructure:"Origin"`
	CacheTTL Duration `mapstructure:"CacheTTL"`
}

// Config is the full structure mapped from the TOML file.
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Tools  []ToolConfig `mapstructure:"Tool"`
}

// EffectiveCacheTTL resolves the TTL for a tool, falling back to the global
// value when the tool does not override it.
func (c *Config) EffectiveCacheTTL(tool ToolConfig) time.Duration {
	if ttl := tool.CacheTTL.DurationValue(); ttl > 0 {
		return ttl
	}
	return c.Global.CacheTTL.DurationValue()
}

// Storage backends supported by the cache store.
const (
	StorageBackendFS     = "fs"
	StorageBackendMemory = "memory"
)
