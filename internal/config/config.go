package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable Load reads
const EnvPrefix = "SILICA_"

// Window holds the demo window settings
type Window struct {
	Width    int
	Height   int
	Title    string
	FPSLimit int // 0 means uncapped
}

// Config is the engine configuration
type Config struct {
	// AssetRoot is the directory asset paths are resolved against
	AssetRoot string
	HotReload bool
	// PollInterval is how often the host checks watched files for changes
	PollInterval time.Duration
	// CleanupInterval is how often unused assets are collected
	CleanupInterval time.Duration
	// StatWindow is how long file existence answers are reused, zero disables reuse
	StatWindow    time.Duration
	StatCacheSize int

	LogLevel    string
	Development bool

	Window Window
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		AssetRoot:       "assets",
		HotReload:       true,
		PollInterval:    500 * time.Millisecond,
		CleanupInterval: 5 * time.Second,
		StatWindow:      100 * time.Millisecond,
		StatCacheSize:   1024,
		LogLevel:        "info",
		Window: Window{
			Width:    900,
			Height:   600,
			Title:    "SilicaEngine",
			FPSLimit: 120,
		},
	}
}

// Load starts from Default, applies the given dotenv files in order and
// then the process environment. Missing files are skipped.
func Load(envFiles ...string) (Config, error) {
	vars := make(map[string]string)
	for _, name := range envFiles {
		values, err := godotenv.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", name, err)
		}
		for k, v := range values {
			vars[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			vars[k] = v
		}
	}

	cfg := Default()
	if err := cfg.apply(vars); err != nil {
		return Config{}, err
	}
	cfg.clamp()
	return cfg, nil
}

func (c *Config) apply(vars map[string]string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := vars[EnvPrefix+key]; ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := vars[EnvPrefix+key]; ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := vars[EnvPrefix+key]; ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := vars[EnvPrefix+key]; ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("ASSET_ROOT", &c.AssetRoot)
	boolean("HOT_RELOAD", &c.HotReload)
	duration("POLL_INTERVAL", &c.PollInterval)
	duration("CLEANUP_INTERVAL", &c.CleanupInterval)
	duration("STAT_WINDOW", &c.StatWindow)
	integer("STAT_CACHE_SIZE", &c.StatCacheSize)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("DEVELOPMENT", &c.Development)
	integer("WINDOW_WIDTH", &c.Window.Width)
	integer("WINDOW_HEIGHT", &c.Window.Height)
	str("WINDOW_TITLE", &c.Window.Title)
	integer("FPS_LIMIT", &c.Window.FPSLimit)

	return multierr.Combine(errs...)
}

// clamp pulls values back into workable ranges
func (c *Config) clamp() {
	if c.PollInterval < 50*time.Millisecond {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.CleanupInterval < time.Second {
		c.CleanupInterval = time.Second
	}
	if c.StatWindow < 0 {
		c.StatWindow = 0
	}
	if c.StatCacheSize < 16 {
		c.StatCacheSize = 16
	}
	if c.Window.Width < 320 {
		c.Window.Width = 320
	}
	if c.Window.Height < 240 {
		c.Window.Height = 240
	}
	if c.Window.FPSLimit < 0 {
		c.Window.FPSLimit = 0
	}
	if c.Window.FPSLimit > 1000 {
		c.Window.FPSLimit = 1000
	}
}
