package metrics

import (
	"time"

	"spc-catalog/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// DBMetricsUpdater refreshes connection-pool gauges.
type DBMetricsUpdater interface {
	UpdateDBMetrics()
}

// Stats holds the current statistics
type Stats struct {
	TotalProducts    int
	TotalCollections int
	TotalFavorites   int
	AssetsByKind     map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbUpdater     DBMetricsUpdater
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	c := &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
	if u, ok := provider.(DBMetricsUpdater); ok {
		c.dbUpdater = u
	}
	return c
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	CatalogProductsTotal.Set(float64(stats.TotalProducts))
	CatalogFavoritesTotal.Set(float64(stats.TotalFavorites))
	for kind, count := range stats.AssetsByKind {
		CatalogAssetsTotal.WithLabelValues(kind).Set(float64(count))
	}

	if c.dbUpdater != nil {
		c.dbUpdater.UpdateDBMetrics()
	}

	logging.Debug("Metrics collected: products=%d, collections=%d, favorites=%d",
		stats.TotalProducts, stats.TotalCollections, stats.TotalFavorites)
}
