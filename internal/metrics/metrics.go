package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_db_rows_affected",
			Help:    "Rows affected by write operations",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses (including expired entries)",
		},
	)

	ThumbnailCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_cache_evictions_total",
			Help: "Total number of thumbnail cache evictions by reason",
		},
		[]string{"reason"}, // "expired", "capacity", "bytes", "invalidated"
	)

	ThumbnailCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_thumbnail_cache_entries",
			Help: "Number of thumbnails held in memory",
		},
	)

	ThumbnailCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_thumbnail_cache_size_bytes",
			Help: "Estimated size of the in-memory thumbnail cache in bytes",
		},
	)
)

// Batch processor metrics
var (
	BatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_batch_queue_depth",
			Help: "Number of thumbnail tasks waiting in the queue",
		},
	)

	BatchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_batch_tasks_total",
			Help: "Total number of thumbnail tasks by outcome",
		},
		[]string{"status"}, // "resolved", "rejected", "closed"
	)

	BatchTaskWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_batch_task_wait_seconds",
			Help:    "Time a task spent queued before processing",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	BatchCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_batch_cycles_total",
			Help: "Total number of drain cycles",
		},
	)

	BatchDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_batch_deduplicated_total",
			Help: "Total number of submissions that joined an in-flight identical request",
		},
	)

	BatchDraining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_batch_draining",
			Help: "Whether the drain loop is running (1 = draining, 0 = idle)",
		},
	)
)

// Thumbnail generator metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"format", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds by phase",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"}, // "load", "decode", "resize", "encode", "total"
	)

	ThumbnailIntermediatePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_intermediate_passes_total",
			Help: "Number of intermediate downsample passes by engine",
		},
		[]string{"engine"}, // "vips", "resize"
	)

	ThumbnailSourceClass = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_source_class_total",
			Help: "Thumbnail requests by source size class",
		},
		[]string{"class"},
	)

	ThumbnailWarmTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_thumbnail_warm_total",
			Help: "Thumbnails pre-warmed after indexing by outcome",
		},
		[]string{"status"},
	)
)

// Catalog metrics
var (
	CatalogFallbackServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_fallback_served_total",
			Help: "Number of responses served from the fallback catalog",
		},
		[]string{"resource"},
	)

	CatalogInvalidRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_invalid_records_total",
			Help: "Records dropped at the API boundary because they failed validation",
		},
		[]string{"resource"},
	)

	CatalogProductsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_products_total",
			Help: "Total number of products",
		},
	)

	CatalogFavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_favorites_total",
			Help: "Total number of favorites across all clients",
		},
	)

	CatalogAssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spc_catalog_assets_total",
			Help: "Indexed asset files by kind",
		},
		[]string{"kind"},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_indexer_last_run_timestamp",
			Help: "Timestamp of the last indexer run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_indexer_files_processed_total",
			Help: "Total number of files processed by the indexer",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_indexer_running",
			Help: "Whether the indexer is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_indexer_parallel_workers",
			Help: "Number of workers used by the last parallel walk",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_operation_errors_total",
			Help: "Filesystem operation errors",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_retry_attempts_total",
			Help: "Filesystem retry attempts after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spc_catalog_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retrying filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemWatcherEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_watcher_events_total",
			Help: "Asset watcher events by type",
		},
		[]string{"event_type"},
	)

	FilesystemWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_filesystem_watcher_errors_total",
			Help: "Asset watcher errors",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spc_catalog_memory_paused",
			Help: "Whether thumbnail processing is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spc_catalog_memory_gc_pauses_total",
			Help: "Number of times processing was paused and a GC forced",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spc_catalog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
