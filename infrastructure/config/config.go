// Package config loads settings from defaults, a YAML file, .env, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ai_registry/application/watcher"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. AI_REGISTRY_SYNC_DRIVER.
const EnvPrefix = "AI_REGISTRY"

// Sync drivers.
const (
	SyncNone   = "none"
	SyncHTTP   = "http"
	SyncFile   = "file"
	SyncSQLite = "sqlite"
)

// Keys shared with the command-line flags.
const (
	KeyLogLevel              = "log_level"
	KeyInitialSettleDelay    = "watcher.initial_settle_delay"
	KeyNavigationSettleDelay = "watcher.navigation_settle_delay"
	KeyDebounceWindow        = "watcher.debounce_window"
	KeyPeriodicInterval      = "watcher.periodic_interval"
	KeyOcclusionCheck        = "scanner.occlusion_check"
	KeyHeadless              = "browser.headless"
	KeyViewportWidth         = "browser.viewport_width"
	KeyViewportHeight        = "browser.viewport_height"
	KeyNavigationTimeout     = "browser.navigation_timeout"
	KeyCDPURL                = "browser.cdp_url"
	KeySyncDriver            = "sync.driver"
	KeySyncURL               = "sync.url"
	KeySyncFile              = "sync.file"
	KeySyncDatabase          = "sync.database"
	KeySyncRetries           = "sync.retries"
	KeySyncTimeout           = "sync.timeout"
	KeyAutoSync              = "sync.auto"
)

type Config struct {
	LogLevel       string
	Watcher        watcher.Config
	OcclusionCheck bool
	Browser        Browser
	Sync           Sync
}

type Browser struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	// CDPURL attaches to a running Chrome instead of launching one.
	CDPURL string
}

type Sync struct {
	Driver   string
	URL      string
	File     string
	Database string
	Retries  int
	Timeout  time.Duration
	Auto     bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	home, err := homedir.Dir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".ai_registry")
	w := watcher.DefaultConfig()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyInitialSettleDelay, w.InitialSettleDelay)
	v.SetDefault(KeyNavigationSettleDelay, w.NavigationSettleDelay)
	v.SetDefault(KeyDebounceWindow, w.DebounceWindow)
	v.SetDefault(KeyPeriodicInterval, w.PeriodicInterval)
	v.SetDefault(KeyOcclusionCheck, true)
	v.SetDefault(KeyHeadless, true)
	v.SetDefault(KeyViewportWidth, 1280)
	v.SetDefault(KeyViewportHeight, 720)
	v.SetDefault(KeyNavigationTimeout, 30*time.Second)
	v.SetDefault(KeyCDPURL, "")
	v.SetDefault(KeySyncDriver, SyncNone)
	v.SetDefault(KeySyncURL, "")
	v.SetDefault(KeySyncFile, filepath.Join(dataDir, "registry.json"))
	v.SetDefault(KeySyncDatabase, filepath.Join(dataDir, "registry.db"))
	v.SetDefault(KeySyncRetries, 3)
	v.SetDefault(KeySyncTimeout, 10*time.Second)
	v.SetDefault(KeyAutoSync, false)
}

// Load reads configuration into v and returns the validated result. cfgFile
// overrides the default ~/.ai_registry.yaml; a missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(".ai_registry")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper builds a Config from whatever v currently holds.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		LogLevel: v.GetString(KeyLogLevel),
		Watcher: watcher.Config{
			InitialSettleDelay:    v.GetDuration(KeyInitialSettleDelay),
			NavigationSettleDelay: v.GetDuration(KeyNavigationSettleDelay),
			DebounceWindow:        v.GetDuration(KeyDebounceWindow),
			PeriodicInterval:      v.GetDuration(KeyPeriodicInterval),
		},
		OcclusionCheck: v.GetBool(KeyOcclusionCheck),
		Browser: Browser{
			Headless:          v.GetBool(KeyHeadless),
			ViewportWidth:     v.GetInt(KeyViewportWidth),
			ViewportHeight:    v.GetInt(KeyViewportHeight),
			NavigationTimeout: v.GetDuration(KeyNavigationTimeout),
			CDPURL:            v.GetString(KeyCDPURL),
		},
		Sync: Sync{
			Driver:   strings.ToLower(v.GetString(KeySyncDriver)),
			URL:      v.GetString(KeySyncURL),
			File:     expand(v.GetString(KeySyncFile)),
			Database: expand(v.GetString(KeySyncDatabase)),
			Retries:  v.GetInt(KeySyncRetries),
			Timeout:  v.GetDuration(KeySyncTimeout),
			Auto:     v.GetBool(KeyAutoSync),
		},
	}
}

func expand(path string) string {
	if out, err := homedir.Expand(path); err == nil {
		return out
	}
	return path
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	positive := map[string]time.Duration{
		KeyInitialSettleDelay:    c.Watcher.InitialSettleDelay,
		KeyNavigationSettleDelay: c.Watcher.NavigationSettleDelay,
		KeyDebounceWindow:        c.Watcher.DebounceWindow,
		KeyNavigationTimeout:     c.Browser.NavigationTimeout,
		KeySyncTimeout:           c.Sync.Timeout,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if c.Watcher.PeriodicInterval < 0 {
		return fmt.Errorf("%s must not be negative", KeyPeriodicInterval)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Sync.Retries < 0 {
		return fmt.Errorf("%s must not be negative", KeySyncRetries)
	}

	switch c.Sync.Driver {
	case SyncNone:
	case SyncHTTP:
		if c.Sync.URL == "" {
			return fmt.Errorf("%s is required for the http sync driver", KeySyncURL)
		}
	case SyncFile:
		if c.Sync.File == "" {
			return fmt.Errorf("%s is required for the file sync driver", KeySyncFile)
		}
	case SyncSQLite:
		if c.Sync.Database == "" {
			return fmt.Errorf("%s is required for the sqlite sync driver", KeySyncDatabase)
		}
	default:
		return fmt.Errorf("unknown sync driver %q", c.Sync.Driver)
	}
	return nil
}
