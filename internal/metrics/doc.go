// Package metrics provides Prometheus instrumentation for the catalog server.
//
// All metrics are registered with promauto at package init and are prefixed
// with "spc_catalog_". They are exposed by promhttp on METRICS_PORT.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration, DBTransactionDuration, DBRowsAffected,
//     DBConnectionsOpen
//
// ## Thumbnail Pipeline Metrics
//   - Cache: ThumbnailCacheHits, ThumbnailCacheMisses, ThumbnailCacheEvictions,
//     ThumbnailCacheEntries, ThumbnailCacheBytes
//   - Batch processor: BatchQueueDepth, BatchTasksTotal, BatchTaskWait,
//     BatchCyclesTotal, BatchDeduplicatedTotal, BatchDraining
//   - Generator: ThumbnailGenerationsTotal, ThumbnailGenerationDuration,
//     ThumbnailIntermediatePasses, ThumbnailSourceClass, ThumbnailWarmTotal
//
// ## Catalog Metrics
//   - CatalogFallbackServed, CatalogInvalidRecords, CatalogProductsTotal,
//     CatalogFavoritesTotal, CatalogAssetsTotal
//
// ## Indexer, Filesystem and Memory Metrics
//   - Indexer*: asset index runs and progress
//   - Filesystem*: NFS retry behaviour and asset watcher events
//   - Memory*: backpressure state from the memory monitor
//
// # Collector
//
// [Collector] periodically pulls aggregate counts from a [StatsProvider]
// (the database) and updates the gauges above.
//
// # Initialization
//
// Call [InitializeMetrics] once at startup so that every labelled series is
// present from the first scrape.
package metrics
