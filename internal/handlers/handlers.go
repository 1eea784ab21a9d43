package handlers

import (
	"spc-catalog/internal/catalog"
	"spc-catalog/internal/display"
	"spc-catalog/internal/indexer"
	"spc-catalog/internal/media"
	"spc-catalog/internal/metrics"
)

// HealthSource reports indexer readiness. *indexer.Indexer satisfies it.
type HealthSource interface {
	IsReady() bool
	GetHealthStatus() indexer.HealthStatus
}

// Handlers holds the dependencies of every HTTP handler.
type Handlers struct {
	catalog *catalog.Service
	thumbs  display.Loader
	assets  *media.Store
	health  HealthSource
	stats   metrics.StatsProvider
}

// New creates the handler set. stats may be nil when the database is down.
func New(svc *catalog.Service, thumbs display.Loader, assets *media.Store, health HealthSource, stats metrics.StatsProvider) *Handlers {
	return &Handlers{
		catalog: svc,
		thumbs:  thumbs,
		assets:  assets,
		health:  health,
		stats:   stats,
	}
}
