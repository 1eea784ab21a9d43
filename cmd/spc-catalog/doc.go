// Package main provides the spc-catalog command.
//
// spc-catalog serves the product catalog of an SPC wall panel line (collections,
// products, certificates, videos, hero images and reference projects) together
// with on-demand thumbnails of the product imagery.
//
// # Commands
//
//	spc-catalog [serve]            start the server (the default)
//	spc-catalog seed [--file f]    load a catalog snapshot into the database
//	spc-catalog thumbnail <asset>  render one thumbnail to a file
//	spc-catalog version            print build information
//
// # Server Lifecycle
//
//  1. Configuration: environment variables are parsed and directories checked
//  2. Memory: GOMEMLIMIT is derived from MEMORY_LIMIT or the cgroup limit
//  3. Database: SQLite is opened and, when empty, seeded from the fallback catalog
//  4. Thumbnails: the cache, the batch processor and the display pipeline start
//  5. Indexer: the assets directory is indexed, then watched for changes;
//     each completed run warms the thumbnail cache for product images
//  6. HTTP: routes, middleware and the optional metrics server start
//
// A database that fails to open is not fatal. The catalog is then served
// from the fallback snapshot, favorites answer 503 and /health reports
// "degraded".
//
// # Background Services
//
//   - Indexer: re-indexes every INDEX_INTERVAL and after file changes
//   - Asset watcher: invalidates cached thumbnails of changed files
//   - Memory monitor: pauses thumbnail batches under memory pressure
//   - Metrics collector: updates catalog gauges every minute
//
// # Environment Variables
//
// See package startup for the full list. The most common ones:
//
//   - ASSETS_DIR: product imagery and certificate PDFs (default: /assets)
//   - DATABASE_DIR: SQLite database directory (default: /database)
//   - PORT: main HTTP server port (default: 8080)
//   - METRICS_PORT: metrics server port (default: 9090)
//   - FALLBACK_CATALOG: YAML snapshot used when the database is unavailable
//   - THUMB_CACHE_CAPACITY, THUMB_CACHE_MAX_AGE, THUMB_CACHE_MAX_BYTES
//   - LOG_LEVEL: debug, info, warn or error
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server:
//
//  1. Stops accepting HTTP requests (30s timeout)
//  2. Shuts down the metrics server
//  3. Cancels index runs and thumbnail warm-up
//  4. Stops the asset watcher and the indexer
//  5. Drains the thumbnail queue
//  6. Closes the database
//
// # Build Requirements
//
// CGO is required for SQLite. libvips is optional; without it thumbnails
// are decoded by the pure Go decoders.
//
//	go build -o spc-catalog ./cmd/spc-catalog
package main
