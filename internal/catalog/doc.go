// Package catalog turns stored catalog rows into validated API objects.
//
// Every product, collection and content record passes a validation step
// before it is served; rows that fail are logged, counted and skipped. When
// the database errors, reads are answered from a static snapshot (embedded
// fallback.yaml, or a file named by FALLBACK_CATALOG) and marked with
// source "fallback". The same snapshot seeds an empty database.
package catalog
