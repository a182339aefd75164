// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. PASSION_STORAGE_BACKEND.
const EnvPrefix = "PASSION"

// Config represents the complete configuration.
type Config struct {
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	Behavior BehaviorConfig `mapstructure:"behavior" yaml:"behavior"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// ResolverConfig contains the route tables used by the next-action resolver.
type ResolverConfig struct {
	ModuleRoutes map[string]string `mapstructure:"module_routes" yaml:"module_routes"` // module key -> route
	DefaultChain []string          `mapstructure:"default_chain" yaml:"default_chain"` // module keys, in order
	ExtraRoutes  []string          `mapstructure:"extra_routes" yaml:"extra_routes"`   // additional known-valid routes
}

// BehaviorConfig contains session overlay thresholds.
type BehaviorConfig struct {
	SoftLandingGap  time.Duration `mapstructure:"soft_landing_gap" yaml:"soft_landing_gap"`   // inactivity before soft landing
	NoopClearStreak int           `mapstructure:"noop_clear_streak" yaml:"noop_clear_streak"` // consecutive noops that end soft landing
	MomentumTimeout time.Duration `mapstructure:"momentum_timeout" yaml:"momentum_timeout"`   // auto-dismiss delay
}

// SyncConfig contains refresh scheduler defaults.
type SyncConfig struct {
	Staleness              time.Duration `mapstructure:"staleness" yaml:"staleness"`
	RefreshOnMount         bool          `mapstructure:"refresh_on_mount" yaml:"refresh_on_mount"`
	RefetchOnFocus         bool          `mapstructure:"refetch_on_focus" yaml:"refetch_on_focus"`
	RefetchOnVisible       bool          `mapstructure:"refetch_on_visible" yaml:"refetch_on_visible"`
	PollingInterval        time.Duration `mapstructure:"polling_interval" yaml:"polling_interval"` // 0 disables polling
	PausePollingWhenHidden bool          `mapstructure:"pause_polling_when_hidden" yaml:"pause_polling_when_hidden"`
	Debounce               time.Duration `mapstructure:"debounce" yaml:"debounce"` // snapshot watcher debounce
}

// StorageConfig selects the session storage backend.
type StorageConfig struct {
	Backend    string        `mapstructure:"backend" yaml:"backend"`         // memory, sqlite, redis
	Path       string        `mapstructure:"path" yaml:"path"`               // sqlite database file
	RedisAddr  string        `mapstructure:"redis_addr" yaml:"redis_addr"`   // host:port
	RedisDB    int           `mapstructure:"redis_db" yaml:"redis_db"`       // database index
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"` // redis key expiry
	MemorySize int           `mapstructure:"memory_size" yaml:"memory_size"` // max in-memory entries
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// MetricsConfig contains the prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // empty disables the endpoint
}

// DefaultModuleRoutes maps module keys to dashboard routes.
func DefaultModuleRoutes() map[string]string {
	return map[string]string{
		"focus":    "/focus",
		"quests":   "/quests",
		"learn":    "/learn",
		"spark":    "/ideas",
		"ideas":    "/ideas",
		"habits":   "/habits",
		"goals":    "/goals",
		"exercise": "/exercise",
		"workout":  "/exercise",
		"books":    "/books",
		"infobase": "/infobase",
		"market":   "/market",
		"calendar": "/planner",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			ModuleRoutes: DefaultModuleRoutes(),
			DefaultChain: []string{"focus", "quests", "learn", "spark"},
			ExtraRoutes:  []string{"/today", "/onboarding", "/settings", "/progress"},
		},
		Behavior: BehaviorConfig{
			SoftLandingGap:  48 * time.Hour,
			NoopClearStreak: 3,
			MomentumTimeout: 8 * time.Second,
		},
		Sync: SyncConfig{
			Staleness:              time.Minute,
			RefreshOnMount:         true,
			RefetchOnFocus:         true,
			RefetchOnVisible:       true,
			PollingInterval:        0,
			PausePollingWhenHidden: true,
			Debounce:               500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend:    "memory",
			SessionTTL: 12 * time.Hour,
			MemorySize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .passion directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".passion")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

// SessionDBPath returns the default sqlite session database path.
func SessionDBPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "session.db")
}

// Load loads configuration from file, falling back to defaults.
// A .env file in projectRoot is loaded first; PASSION_* variables override
// file values.
func Load(projectRoot string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	envPath := filepath.Join(projectRoot, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to load %s: %v", envPath, err))
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	configPath := ConfigPath(projectRoot)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
	} else {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	def := DefaultConfig()
	if len(cfg.Resolver.ModuleRoutes) == 0 {
		cfg.Resolver.ModuleRoutes = def.Resolver.ModuleRoutes
	}
	if len(cfg.Resolver.DefaultChain) == 0 {
		cfg.Resolver.DefaultChain = def.Resolver.DefaultChain
	}
	if cfg.Behavior.SoftLandingGap == 0 {
		cfg.Behavior.SoftLandingGap = def.Behavior.SoftLandingGap
	}
	if cfg.Behavior.NoopClearStreak == 0 {
		cfg.Behavior.NoopClearStreak = def.Behavior.NoopClearStreak
	}
	// An explicit zero means always stale.
	if !v.IsSet("sync.staleness") {
		cfg.Sync.Staleness = def.Sync.Staleness
		warnings = append(warnings, "Using default staleness window: 1m")
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.Path == "" {
		cfg.Storage.Path = SessionDBPath(projectRoot)
	}
	if cfg.Storage.MemorySize == 0 {
		cfg.Storage.MemorySize = def.Storage.MemorySize
	}

	return cfg, warnings, nil
}

// bindEnv registers the keys AutomaticEnv should resolve during Unmarshal.
// Viper only consults the environment for keys it already knows about.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"sync.staleness", "sync.polling_interval",
		"storage.backend", "storage.path", "storage.redis_addr", "storage.redis_db", "storage.session_ttl",
		"logging.level", "logging.format",
		"metrics.addr",
	} {
		_ = v.BindEnv(key)
	}
}

// Save saves configuration to file.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(projectRoot))
	v.SetConfigType("yaml")

	v.Set("resolver", cfg.Resolver)
	v.Set("behavior", cfg.Behavior)
	v.Set("sync", cfg.Sync)
	v.Set("storage", cfg.Storage)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)

	return v.WriteConfig()
}

// Validate validates the configuration. Every returned error wraps
// types.ErrInvalidConfig.
func Validate(cfg *Config) []error {
	var errs []error

	for _, key := range cfg.Resolver.DefaultChain {
		if _, ok := cfg.Resolver.ModuleRoutes[key]; !ok {
			errs = append(errs, fmt.Errorf("default chain module %q has no route", key))
		}
	}
	for key, route := range cfg.Resolver.ModuleRoutes {
		if !strings.HasPrefix(route, "/") {
			errs = append(errs, fmt.Errorf("route for module %q must start with /: %s", key, route))
		}
	}
	for _, route := range cfg.Resolver.ExtraRoutes {
		if !strings.HasPrefix(route, "/") {
			errs = append(errs, fmt.Errorf("extra route must start with /: %s", route))
		}
	}

	if cfg.Behavior.SoftLandingGap < 0 {
		errs = append(errs, fmt.Errorf("soft_landing_gap must not be negative: %s", cfg.Behavior.SoftLandingGap))
	}
	if cfg.Behavior.NoopClearStreak < 1 {
		errs = append(errs, fmt.Errorf("noop_clear_streak must be at least 1: %d", cfg.Behavior.NoopClearStreak))
	}

	if cfg.Sync.Staleness < 0 {
		errs = append(errs, fmt.Errorf("staleness must not be negative: %s", cfg.Sync.Staleness))
	}
	if cfg.Sync.PollingInterval < 0 {
		errs = append(errs, fmt.Errorf("polling_interval must not be negative: %s", cfg.Sync.PollingInterval))
	}

	validBackends := map[string]bool{
		"memory": true, "sqlite": true, "redis": true,
	}
	if !validBackends[cfg.Storage.Backend] {
		errs = append(errs, fmt.Errorf("invalid storage backend: %s (valid: memory, sqlite, redis)", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == "redis" && cfg.Storage.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("storage.redis_addr is required for the redis backend"))
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.Logging.Level))
	}

	for i, err := range errs {
		errs[i] = fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}
	return errs
}

// Copy creates a deep copy of the config.
func (c *Config) Copy() *Config {
	copy := *c

	if c.Resolver.ModuleRoutes != nil {
		copy.Resolver.ModuleRoutes = make(map[string]string, len(c.Resolver.ModuleRoutes))
		for k, v := range c.Resolver.ModuleRoutes {
			copy.Resolver.ModuleRoutes[k] = v
		}
	}
	if c.Resolver.DefaultChain != nil {
		copy.Resolver.DefaultChain = append([]string(nil), c.Resolver.DefaultChain...)
	}
	if c.Resolver.ExtraRoutes != nil {
		copy.Resolver.ExtraRoutes = append([]string(nil), c.Resolver.ExtraRoutes...)
	}

	return &copy
}
