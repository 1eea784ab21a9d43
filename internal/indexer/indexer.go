package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spc-catalog/internal/database"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
)

const (
	// Delay between batches to allow other operations
	batchDelay = 10 * time.Millisecond

	// Quiet period after a change notification before re-indexing
	defaultDebounce = 2 * time.Second
)

// Result summarizes one index run.
type Result struct {
	Assets   int
	Removed  int64
	Duration time.Duration
}

// Indexer keeps the asset table in sync with the assets directory.
type Indexer struct {
	db            *database.Database
	assetsDir     string
	indexInterval time.Duration
	debounce      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	lastResult           Result
	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	parallelConfig ParallelWalkerConfig

	// Callback when indexing completes
	onIndexComplete func(ctx context.Context, r Result)

	notifyMu    sync.Mutex
	notifyTimer *time.Timer
}

// New creates a new Indexer instance.
func New(db *database.Database, assetsDir string, indexInterval time.Duration) *Indexer {
	return &Indexer{
		db:             db,
		assetsDir:      assetsDir,
		indexInterval:  indexInterval,
		debounce:       defaultDebounce,
		stopChan:       make(chan struct{}),
		startTime:      time.Now(),
		parallelConfig: DefaultParallelWalkerConfig(),
	}
}

// SetParallelConfig sets the parallel walker configuration.
func (idx *Indexer) SetParallelConfig(config ParallelWalkerConfig) {
	idx.parallelConfig = config
}

// SetDebounce sets the quiet period used by Notify.
func (idx *Indexer) SetDebounce(d time.Duration) {
	if d > 0 {
		idx.debounce = d
	}
}

// SetOnIndexComplete sets a callback invoked after every successful run.
func (idx *Indexer) SetOnIndexComplete(callback func(ctx context.Context, r Result)) {
	idx.onIndexComplete = callback
}

// Start runs the initial index in the background and schedules periodic
// re-indexing every indexInterval.
func (idx *Indexer) Start(ctx context.Context) {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial asset index in background...")
		if _, err := idx.Index(ctx); err != nil {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()

	if idx.indexInterval > 0 {
		idx.wg.Add(1)
		go idx.periodicIndex(ctx)
	}
}

// Stop stops background indexing and waits for running goroutines.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		close(idx.stopChan)
		idx.notifyMu.Lock()
		if idx.notifyTimer != nil {
			idx.notifyTimer.Stop()
		}
		idx.notifyMu.Unlock()
	})
	idx.wg.Wait()
}

// IsReady reports whether the first index run has finished.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool      `json:"ready"`
	Indexing          bool      `json:"indexing"`
	StartTime         time.Time `json:"startTime"`
	Uptime            string    `json:"uptime"`
	LastIndexed       time.Time `json:"lastIndexed,omitempty"`
	InitialIndexError string    `json:"initialIndexError,omitempty"`
	AssetsIndexed     int       `json:"assetsIndexed"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:         idx.initialIndexComplete,
		Indexing:      idx.isIndexing,
		StartTime:     idx.startTime,
		Uptime:        time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed:   idx.lastIndexTime,
		AssetsIndexed: idx.lastResult.Assets,
	}
	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}
	return status
}

// Index performs a full index of the assets directory. A run already in
// progress makes this a no-op.
func (idx *Indexer) Index(ctx context.Context) (Result, error) {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return Result{}, nil
	}
	defer idx.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-idx.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	startTime := time.Now()
	// updated_at has second resolution
	indexTime := startTime.Truncate(time.Second)
	logging.Info("Starting asset indexing of %s...", idx.assetsDir)

	walker := NewParallelWalker(ctx, idx.assetsDir, idx.parallelConfig)
	assets, err := walker.Walk()
	_, walkErrors := walker.Stats()
	metrics.IndexerErrors.Add(float64(walkErrors))
	if err != nil {
		metrics.IndexerErrors.Inc()
		return Result{}, fmt.Errorf("asset walk failed: %w", err)
	}

	if err := idx.processBatchedAssets(ctx, assets); err != nil {
		metrics.IndexerErrors.Inc()
		return Result{}, err
	}

	removed, err := idx.cleanupMissingAssets(indexTime)
	if err != nil {
		logging.Error("Error cleaning up missing assets: %v", err)
		metrics.IndexerErrors.Inc()
	}

	result := Result{Assets: len(assets), Removed: removed, Duration: time.Since(startTime)}
	idx.finalizeIndex(ctx, result)
	return result, nil
}

// processBatchedAssets writes assets in BatchSize transactions.
func (idx *Indexer) processBatchedAssets(ctx context.Context, assets []database.Asset) error {
	size := idx.parallelConfig.BatchSize
	if size < 1 {
		size = 500
	}
	total := len(assets)
	logging.Debug("Processing %d assets in batches of %d", total, size)

	for i := 0; i < total; i += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+size, total)
		if err := idx.processBatch(assets[i:end]); err != nil {
			logging.Error("Error processing batch: %v", err)
		}

		if end < total {
			time.Sleep(batchDelay)
		}
	}
	return nil
}

// processBatch processes a batch of assets in a single transaction.
func (idx *Indexer) processBatch(assets []database.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	tx, err := idx.db.BeginBatch()
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}

	for i := range assets {
		if err := idx.db.UpsertAsset(tx, &assets[i]); err != nil {
			logging.Warn("Error upserting asset %s: %v", assets[i].Path, err)
		}
	}

	if err := idx.db.EndBatch(tx, nil); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// cleanupMissingAssets removes assets that were not seen by this run.
func (idx *Indexer) cleanupMissingAssets(indexTime time.Time) (int64, error) {
	tx, err := idx.db.BeginBatch()
	if err != nil {
		return 0, fmt.Errorf("failed to begin cleanup transaction: %w", err)
	}

	deleted, err := idx.db.DeleteMissingAssets(tx, indexTime)
	if err != nil {
		if endErr := idx.db.EndBatch(tx, err); endErr != nil {
			logging.Error("failed to end batch after cleanup error: %v", endErr)
		}
		return 0, err
	}

	if err := idx.db.EndBatch(tx, nil); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	if deleted > 0 {
		logging.Info("Removed %d missing assets from index", deleted)
	}
	return deleted, nil
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.initialIndexComplete = true
}

func (idx *Indexer) finalizeIndex(ctx context.Context, result Result) {
	now := time.Now()

	idx.indexMu.Lock()
	idx.lastIndexTime = now
	idx.lastResult = result
	idx.indexMu.Unlock()

	if err := idx.db.SetLastIndexRun(ctx, now); err != nil {
		logging.Warn("Failed to record last index run: %v", err)
	}

	metrics.IndexerLastRunTimestamp.Set(float64(now.Unix()))
	metrics.IndexerLastRunDuration.Set(result.Duration.Seconds())
	metrics.IndexerFilesProcessed.Add(float64(result.Assets))

	logging.Info("Index complete: %d assets (%d removed) in %v", result.Assets, result.Removed, result.Duration)

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(ctx, result)
	}
}

func (idx *Indexer) periodicIndex(ctx context.Context) {
	defer idx.wg.Done()

	ticker := time.NewTicker(idx.indexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			if _, err := idx.Index(ctx); err != nil {
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Notify schedules a re-index after the debounce period. Repeated calls
// within the period collapse into one run.
func (idx *Indexer) Notify() {
	select {
	case <-idx.stopChan:
		return
	default:
	}

	idx.notifyMu.Lock()
	defer idx.notifyMu.Unlock()

	if idx.notifyTimer != nil {
		idx.notifyTimer.Reset(idx.debounce)
		return
	}
	idx.notifyTimer = time.AfterFunc(idx.debounce, func() {
		idx.notifyMu.Lock()
		idx.notifyTimer = nil
		idx.notifyMu.Unlock()

		logging.Debug("Change-triggered re-index")
		idx.TriggerIndex()
	})
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// TriggerIndex starts a re-index in the background.
func (idx *Indexer) TriggerIndex() {
	select {
	case <-idx.stopChan:
		return
	default:
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.Index(context.Background()); err != nil {
			logging.Error("triggered re-index failed: %v", err)
		}
	}()
}
