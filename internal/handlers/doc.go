// Package handlers provides the HTTP handlers of the catalog API.
//
// It includes handlers for:
//   - Thumbnails (binary and data URL forms) and original assets
//   - Collections and paginated, filtered products
//   - Certificates (with file download), videos, hero images and projects
//   - Anonymous favorites keyed by a client_id cookie
//   - Health, liveness, readiness and version
//
// Catalog reads never fail outright: when the database errors the catalog
// service answers from the fallback snapshot and responses carry
// "source": "fallback".
package handlers
