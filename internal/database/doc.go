// Package database provides SQLite storage for the catalog server.
//
// It handles storage and retrieval of:
//   - Collections and products, with filtered and paginated listing
//   - Certificates, instruction videos, hero images and gallery projects
//   - Anonymous per-client favorites
//   - The asset index maintained by the indexer
//   - Key/value metadata such as the last index run
//
// The database uses WAL mode for concurrent reads and creates or migrates
// its schema on open. Rows are returned as stored; validation happens in the
// catalog package.
package database
