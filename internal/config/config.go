// Package config loads arbor settings from YAML or JSON files and ARBOR_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Drag      DragConfig      `yaml:"drag" json:"drag"`
	Geometry  GeometryConfig  `yaml:"geometry" json:"geometry"`
	Reconcile ReconcileConfig `yaml:"reconcile" json:"reconcile"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

type DragConfig struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

type GeometryConfig struct {
	ZoneMargin float64 `yaml:"zone_margin" json:"zone_margin"`
}

type ReconcileConfig struct {
	MaxRepairAttempts int `yaml:"max_repair_attempts" json:"max_repair_attempts"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Path    string      `yaml:"path" json:"path"`
	LockTTL Duration    `yaml:"lock_ttl" json:"lock_ttl"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
	// EncryptionKey, when set, seals documents at rest with AES-GCM.
	// It is a hex encoded 32 byte (AES-256) key.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr" json:"addr"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	Prefix   string   `yaml:"prefix" json:"prefix"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
}

type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Drag:      DragConfig{Threshold: 5},
		Geometry:  GeometryConfig{ZoneMargin: 12},
		Reconcile: ReconcileConfig{MaxRepairAttempts: 2},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    filepath.Join(".arbor", "documents"),
			LockTTL: Duration(30 * time.Second),
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "arbor:doc:"},
		},
		Server:  ServerConfig{Port: 8080},
		Metrics: MetricsConfig{Port: 2112},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (YAML, or JSON for a .json extension) over the defaults and then
// applies environment overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		case strings.EqualFold(filepath.Ext(path), ".json"):
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
			}
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("ARBOR_STORE_BACKEND", &c.Store.Backend)
	str("ARBOR_STORE_PATH", &c.Store.Path)
	str("ARBOR_ENCRYPTION_KEY", &c.Store.EncryptionKey)
	str("ARBOR_REDIS_ADDR", &c.Store.Redis.Addr)
	str("ARBOR_REDIS_PASSWORD", &c.Store.Redis.Password)
	str("ARBOR_LOG_LEVEL", &c.Log.Level)
	if err := num("ARBOR_REDIS_DB", &c.Store.Redis.DB); err != nil {
		return err
	}
	if err := num("ARBOR_PORT", &c.Server.Port); err != nil {
		return err
	}
	return num("ARBOR_METRICS_PORT", &c.Metrics.Port)
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q (want memory, file or redis)", c.Store.Backend)
	}
	if c.Drag.Threshold < 0 {
		return fmt.Errorf("drag.threshold must not be negative, got %v", c.Drag.Threshold)
	}
	if c.Geometry.ZoneMargin < 0 {
		return fmt.Errorf("geometry.zone_margin must not be negative, got %v", c.Geometry.ZoneMargin)
	}
	if c.Reconcile.MaxRepairAttempts < 0 {
		return fmt.Errorf("reconcile.max_repair_attempts must not be negative, got %d", c.Reconcile.MaxRepairAttempts)
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("30s", "1h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
