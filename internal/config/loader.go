package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads and parses the TOML config file, applying defaults and
// validation before returning.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.StorageBackend == StorageBackendFS {
		absStorage, err := filepath.Abs(cfg.Global.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("resolve storage path: %w", err)
		}
		cfg.Global.StoragePath = absStorage
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("StorageBackend", StorageBackendFS)
	v.SetDefault("CacheTTL", 300)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("TaskTimeout", "30s")
	v.SetDefault("DrainTimeout", "10s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.StorageBackend == "" {
		g.StorageBackend = StorageBackendFS
	}
	g.StorageBackend = strings.ToLower(strings.TrimSpace(g.StorageBackend))
	if g.CacheTTL.DurationValue() == 0 {
		g.CacheTTL = Duration(5 * time.Minute)
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.TaskTimeout.DurationValue() == 0 {
		g.TaskTimeout = Duration(30 * time.Second)
	}
	if g.DrainTimeout.DurationValue() == 0 {
		g.DrainTimeout = Duration(10 * time.Second)
	}
}

// durationDecodeHook converts string and integer TOML values into Duration,
// treating bare integers as seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Duration(0)) {
			return data, nil
		}

		switch from.Kind() {
		case reflect.String:
			var d Duration
			if err := d.UnmarshalText([]byte(data.(string))); err != nil {
				return nil, err
			}
			return d, nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			seconds := reflect.ValueOf(data).Int()
			return Duration(time.Duration(seconds) * time.Second), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			seconds := reflect.ValueOf(data).Uint()
			return Duration(time.Duration(seconds) * time.Second), nil
		case reflect.Float32, reflect.Float64:
			seconds := reflect.ValueOf(data).Float()
			return Duration(time.Duration(seconds * float64(time.Second))), nil
		default:
			return nil, fmt.Errorf("unsupported duration type: %s", from.Kind())
		}
	}
}
