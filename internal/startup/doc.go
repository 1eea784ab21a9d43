// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] parses environment variables into [Config]:
//
//   - ASSETS_DIR: product images, certificates and video previews (default: /assets)
//   - DATABASE_DIR: SQLite directory, must be writable (default: /database)
//   - PORT, METRICS_PORT, METRICS_ENABLED: listeners (defaults: 8080, 9090, true)
//   - INDEX_INTERVAL: periodic asset re-index, 0 disables (default: 30m)
//   - THUMB_CACHE_CAPACITY, THUMB_CACHE_MAX_AGE, THUMB_CACHE_MAX_BYTES: thumbnail cache bounds
//   - THUMB_BATCH_SIZE, THUMB_ITEM_DELAY: batch processor tuning (0 = auto)
//   - THUMB_WARM_SIZES: comma separated sizes pre-generated after each index
//   - THUMBNAIL_WORKERS: worker count override for CPU-bound pools
//   - FALLBACK_CATALOG: YAML snapshot served when the database fails (default: embedded)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: logging
//   - MEMORY_LIMIT, MEMORY_RATIO: automatic GOMEMLIMIT
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
