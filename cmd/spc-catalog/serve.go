package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"spc-catalog/internal/batch"
	"spc-catalog/internal/catalog"
	"spc-catalog/internal/database"
	"spc-catalog/internal/display"
	"spc-catalog/internal/filesystem"
	"spc-catalog/internal/handlers"
	"spc-catalog/internal/indexer"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
	"spc-catalog/internal/memory"
	"spc-catalog/internal/metrics"
	"spc-catalog/internal/middleware"
	"spc-catalog/internal/startup"
	"spc-catalog/internal/thumbcache"
	"spc-catalog/internal/workers"
)

const shutdownTimeout = 30 * time.Second

func (c *CLI) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog and thumbnail server (default)",
		Long: `Start the HTTP server. All settings come from environment variables,
see the package documentation for the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

// offlineHealth stands in for the indexer when the database is unavailable:
// the server is ready at once and reports why nothing is indexed.
type offlineHealth struct {
	start time.Time
	err   error
}

func (o offlineHealth) IsReady() bool { return true }

func (o offlineHealth) GetHealthStatus() indexer.HealthStatus {
	return indexer.HealthStatus{
		Ready:             true,
		StartTime:         o.start,
		Uptime:            time.Since(o.start).Round(time.Second).String(),
		InitialIndexError: fmt.Sprintf("indexing disabled: %v", o.err),
	}
}

// server is everything serve starts and must stop again.
type server struct {
	http     *http.Server
	metrics  *http.Server
	db       *database.Database
	idx      *indexer.Indexer
	watcher  *filesystem.Watcher
	pipeline *display.Pipeline
	monitor  *memory.Monitor
	collect  *metrics.Collector
	// cancel stops index runs and thumbnail warm-up in flight.
	cancel context.CancelFunc
}

func (c *CLI) serve(ctx context.Context) error {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	startup.LogMemoryInit(memory.Configure(config.MemoryLimit, config.MemoryRatio))
	if config.ThumbnailWorkers > 0 {
		workers.SetOverride(config.ThumbnailWorkers)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"assets":   config.AssetsDir,
		"database": config.DatabaseDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	media.InitVips()
	defer media.ShutdownVips()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := &server{cancel: cancel}

	snapshot, err := catalog.LoadSnapshot(config.FallbackCatalog)
	if err != nil {
		logging.Warn("Failed to load fallback catalog %s: %v (using built-in catalog)", config.FallbackCatalog, err)
		if snapshot, err = catalog.LoadSnapshot(""); err != nil {
			return fmt.Errorf("built-in catalog is invalid: %w", err)
		}
	}

	dbStart := time.Now()
	db, dbErr := database.New(ctx, config.DatabasePath)
	startup.LogDatabaseInit(time.Since(dbStart), dbErr)

	// Interface values stay nil rather than holding a nil *Database.
	var (
		store catalog.Store
		stats metrics.StatsProvider
	)
	if dbErr == nil {
		s.db = db
		store, stats = db, db
		if db.GetStats().TotalProducts == 0 {
			if err := db.Seed(ctx, snapshot.SeedData()); err != nil {
				logging.Warn("  Failed to seed empty database: %v", err)
			} else {
				logging.Info("  [OK] Seeded empty database from the fallback catalog")
			}
		}
	}

	s.monitor = memory.NewMonitor(memory.DefaultConfig())
	s.monitor.Start()

	batchSize := config.ThumbBatchSize
	if batchSize <= 0 {
		batchSize = workers.ForCPU(4)
	}
	cache := thumbcache.New[*media.Thumbnail](thumbcache.Options{
		Capacity: config.ThumbCacheCapacity,
		MaxAge:   config.ThumbCacheMaxAge,
		MaxBytes: config.ThumbCacheBudget,
	})
	assets := media.NewStore(config.AssetsDir)
	s.pipeline = display.NewPipeline(cache, media.NewGenerator(assets), assets, batch.Options{
		BatchSize: batchSize,
		ItemDelay: config.ThumbItemDelay,
		Gate:      s.monitor,
	})
	startup.LogThumbnailInit(batchSize, config.ThumbCacheCapacity, config.ThumbCacheMaxAge)

	var health handlers.HealthSource = offlineHealth{start: startTime, err: dbErr}
	if s.db != nil {
		startup.LogIndexerInit(config.IndexInterval)
		s.idx = indexer.New(s.db, config.AssetsDir, config.IndexInterval)
		warmer := indexer.NewWarmer(s.pipeline, s.db.ProductImages, config.ThumbWarmSizes)
		s.idx.SetOnIndexComplete(func(ctx context.Context, _ indexer.Result) {
			if _, err := warmer.Warm(ctx); err != nil && ctx.Err() == nil {
				logging.Warn("Thumbnail warm-up failed: %v", err)
			}
		})
		s.idx.Start(runCtx)
		health = s.idx
	}

	s.watcher, err = filesystem.NewWatcher(config.AssetsDir, func(path string) {
		if rel, ok := assets.Rel(path); ok {
			if n := cache.InvalidateSource(rel); n > 0 {
				logging.Debug("Invalidated %d cached thumbnails of %s", n, rel)
			}
		}
		if s.idx != nil {
			s.idx.Notify()
		}
	})
	if err != nil {
		logging.Warn("Asset watcher unavailable: %v", err)
	} else {
		s.watcher.Start(runCtx)
	}
	if s.idx != nil {
		watched := 0
		if s.watcher != nil {
			watched = s.watcher.WatchedDirectories()
		}
		startup.LogIndexerStarted(watched)
	}

	if stats != nil {
		s.collect = metrics.NewCollector(stats, time.Minute)
		s.collect.Start()
	}

	h := handlers.New(catalog.NewService(store, snapshot), s.pipeline, assets, health, stats)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.RequestID(handler)

	s.http = &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		s.metrics = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case <-ctx.Done():
		startup.LogShutdownInitiated("context cancellation")
	case runErr = <-errCh:
		logging.Error("%v", runErr)
		startup.LogShutdownInitiated("server error")
	}

	s.shutdown()
	return runErr
}

// shutdown stops the components in reverse dependency order: no new
// requests, then no new index runs, then drain the thumbnail queue.
func (s *server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if s.metrics != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := s.metrics.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	s.cancel()

	if s.watcher != nil {
		startup.LogShutdownStep("Stopping asset watcher")
		if err := s.watcher.Close(); err != nil {
			logging.Warn("Asset watcher close error: %v", err)
		}
		startup.LogShutdownStepComplete("Asset watcher stopped")
	}

	if s.idx != nil {
		startup.LogShutdownStep("Stopping indexer")
		s.idx.Stop()
		startup.LogShutdownStepComplete("Indexer stopped")
	}

	startup.LogShutdownStep("Draining thumbnail queue")
	s.pipeline.Close()
	s.monitor.Stop()
	startup.LogShutdownStepComplete("Thumbnail pipeline stopped")

	if s.collect != nil {
		s.collect.Stop()
	}

	if s.db != nil {
		startup.LogShutdownStep("Closing database")
		if err := s.db.Close(); err != nil {
			logging.Warn("Database close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Database closed")
		}
	}

	startup.LogShutdownComplete()
}
