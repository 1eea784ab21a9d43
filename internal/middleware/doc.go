// Package middleware provides HTTP middleware for the catalog server.
//
// It includes:
//   - Request IDs (X-Request-ID) for correlating log lines
//   - Request logging in W3C Extended Log Format
//   - gzip response compression for JSON and text bodies
//   - Prometheus request metrics with bounded path labels
package middleware
