package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
)

// Config holds all application configuration
type Config struct {
	AssetsDir       string        `env:"ASSETS_DIR" envDefault:"/assets"`
	DatabaseDir     string        `env:"DATABASE_DIR" envDefault:"/database"`
	Port            string        `env:"PORT" envDefault:"8080"`
	MetricsPort     string        `env:"METRICS_PORT" envDefault:"9090"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	IndexInterval   time.Duration `env:"INDEX_INTERVAL" envDefault:"30m"`
	LogStaticFiles  bool          `env:"LOG_STATIC_FILES" envDefault:"false"`
	LogHealthChecks bool          `env:"LOG_HEALTH_CHECKS" envDefault:"true"`
	FallbackCatalog string        `env:"FALLBACK_CATALOG"`

	ThumbCacheCapacity int           `env:"THUMB_CACHE_CAPACITY" envDefault:"500"`
	ThumbCacheMaxAge   time.Duration `env:"THUMB_CACHE_MAX_AGE" envDefault:"30m"`
	ThumbCacheMaxBytes string        `env:"THUMB_CACHE_MAX_BYTES" envDefault:"256MiB"`
	ThumbBatchSize     int           `env:"THUMB_BATCH_SIZE" envDefault:"0"`
	ThumbItemDelay     time.Duration `env:"THUMB_ITEM_DELAY" envDefault:"10ms"`
	ThumbWarmSizes     []int         `env:"THUMB_WARM_SIZES" envSeparator:"," envDefault:"300"`
	ThumbnailWorkers   int           `env:"THUMBNAIL_WORKERS" envDefault:"0"`

	MemoryLimit string  `env:"MEMORY_LIMIT"`
	MemoryRatio float64 `env:"MEMORY_RATIO" envDefault:"0.85"`

	// Derived
	DatabasePath     string
	ThumbCacheBudget int64
}

// LoadConfig prints the banner, then loads and validates configuration from
// environment variables.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (*Config, error) {
	logSection("CONFIGURATION")

	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.normalize()
	cfg.log()

	logging.Info("")
	logSection("DIRECTORY SETUP")

	if cfg.AssetsDir, err = filepath.Abs(cfg.AssetsDir); err != nil {
		return nil, fmt.Errorf("failed to resolve assets directory path: %w", err)
	}
	logging.Info("  Assets directory (absolute): %s", cfg.AssetsDir)

	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", cfg.DatabaseDir)

	// A missing assets dir only degrades the server: thumbnails 404 and the
	// indexer reports the error in /health.
	if err := ensureDirectory(cfg.AssetsDir, "assets"); err != nil {
		logging.Warn("  Assets directory issue: %v", err)
	}

	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "catalog.db")
	return &cfg, nil
}

// normalize replaces out-of-range values with defaults and fills derived fields.
func (c *Config) normalize() {
	if c.ThumbCacheCapacity < 1 {
		logging.Warn("  Invalid THUMB_CACHE_CAPACITY %d, using default: 500", c.ThumbCacheCapacity)
		c.ThumbCacheCapacity = 500
	}
	if c.ThumbCacheMaxAge <= 0 {
		logging.Warn("  Invalid THUMB_CACHE_MAX_AGE %v, using default: 30m", c.ThumbCacheMaxAge)
		c.ThumbCacheMaxAge = 30 * time.Minute
	}
	if c.ThumbBatchSize < 0 {
		c.ThumbBatchSize = 0
	}
	if c.IndexInterval < 0 {
		c.IndexInterval = 0
	}

	c.ThumbCacheBudget = 0
	if c.ThumbCacheMaxBytes != "" {
		n, err := humanize.ParseBytes(c.ThumbCacheMaxBytes)
		if err != nil {
			logging.Warn("  Invalid THUMB_CACHE_MAX_BYTES %q, byte budget disabled: %v", c.ThumbCacheMaxBytes, err)
		} else {
			c.ThumbCacheBudget = int64(n)
		}
	}

	valid := c.ThumbWarmSizes[:0]
	for _, s := range c.ThumbWarmSizes {
		if s < media.MinSize || s > media.MaxSize {
			logging.Warn("  Ignoring THUMB_WARM_SIZES entry %d (allowed %d..%d)", s, media.MinSize, media.MaxSize)
			continue
		}
		valid = append(valid, s)
	}
	c.ThumbWarmSizes = valid
}

func (c *Config) log() {
	logging.Info("  ASSETS_DIR:            %s", c.AssetsDir)
	logging.Info("  DATABASE_DIR:          %s", c.DatabaseDir)
	logging.Info("  PORT:                  %s", c.Port)
	logging.Info("  METRICS_PORT:          %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", c.MetricsEnabled)
	logging.Info("  INDEX_INTERVAL:        %v", c.IndexInterval)
	logging.Info("  THUMB_CACHE_CAPACITY:  %d", c.ThumbCacheCapacity)
	logging.Info("  THUMB_CACHE_MAX_AGE:   %v", c.ThumbCacheMaxAge)
	logging.Info("  THUMB_CACHE_MAX_BYTES: %s", budgetString(c.ThumbCacheBudget))
	logging.Info("  THUMB_BATCH_SIZE:      %s", autoString(c.ThumbBatchSize))
	logging.Info("  THUMB_ITEM_DELAY:      %v", c.ThumbItemDelay)
	logging.Info("  THUMB_WARM_SIZES:      %v", c.ThumbWarmSizes)
	logging.Info("  THUMBNAIL_WORKERS:     %s", autoString(c.ThumbnailWorkers))
	if c.FallbackCatalog != "" {
		logging.Info("  FALLBACK_CATALOG:      %s", c.FallbackCatalog)
	} else {
		logging.Info("  FALLBACK_CATALOG:      (embedded)")
	}
	logging.Info("  LOG_STATIC_FILES:      %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())
}

func budgetString(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(n))
}

func autoString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
