// Package indexer keeps the asset table in sync with the assets directory.
//
// A run walks ASSETS_DIR with a pool of stat workers, upserts every
// non-hidden file in batched transactions and removes rows for files that
// were not seen. Runs happen at startup, every INDEX_INTERVAL, and shortly
// after the filesystem watcher reports a change (debounced through Notify).
//
// After each successful run the completion hook usually calls a Warmer,
// which pushes product images through the thumbnail pipeline at the
// configured warm sizes.
//
// Readiness (IsReady) turns true once the first run has finished.
package indexer
