package indexer

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 used as a change fingerprint, not security
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"spc-catalog/internal/database"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
	"spc-catalog/internal/metrics"
	"spc-catalog/internal/workers"
)

// ParallelWalkerConfig configures the parallel directory walker
type ParallelWalkerConfig struct {
	// NumWorkers is the number of stat workers
	NumWorkers int
	// BatchSize is the number of assets per database transaction
	BatchSize int
	// ChannelBuffer is the size of the work channel buffer
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultParallelWalkerConfig sizes the walker for I/O-bound work. Asset
// trees are often on NFS, so the worker count stays small.
func DefaultParallelWalkerConfig() ParallelWalkerConfig {
	return ParallelWalkerConfig{
		NumWorkers:    workers.ForIO(4),
		BatchSize:     500,
		ChannelBuffer: 1000,
		SkipHidden:    true,
	}
}

type fileJob struct {
	path    string
	relPath string
	entry   fs.DirEntry
}

type fileResult struct {
	asset *database.Asset
	err   error
}

// ParallelWalker walks the assets tree and stats files on a worker pool.
type ParallelWalker struct {
	config ParallelWalkerConfig
	root   string

	jobs    chan fileJob
	results chan fileResult

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	filesProcessed atomic.Int64
	errorsCount    atomic.Int64
}

// NewParallelWalker creates a walker rooted at root.
func NewParallelWalker(ctx context.Context, root string, config ParallelWalkerConfig) *ParallelWalker {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &ParallelWalker{
		config:  config,
		root:    root,
		jobs:    make(chan fileJob, config.ChannelBuffer),
		results: make(chan fileResult, config.ChannelBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Walk returns every non-hidden file under the root as an asset record.
func (pw *ParallelWalker) Walk() ([]database.Asset, error) {
	defer pw.cancel()

	logging.Info("Starting parallel asset walk with %d workers", pw.config.NumWorkers)
	startTime := time.Now()
	metrics.IndexerParallelWorkers.Set(float64(pw.config.NumWorkers))

	for i := 0; i < pw.config.NumWorkers; i++ {
		pw.wg.Add(1)
		go pw.worker(i)
	}

	var assets []database.Asset
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range pw.results {
			if result.err != nil {
				pw.errorsCount.Add(1)
				logging.Debug("Error processing asset: %v", result.err)
				continue
			}
			if result.asset != nil {
				assets = append(assets, *result.asset)
			}
		}
	}()

	err := pw.walkAndEnqueue()

	close(pw.jobs)
	pw.wg.Wait()
	close(pw.results)
	<-collected

	logging.Info("Parallel walk complete: %d assets in %v (errors: %d)",
		pw.filesProcessed.Load(), time.Since(startTime), pw.errorsCount.Load())

	if err == nil {
		err = pw.ctx.Err()
	}
	return assets, err
}

func (pw *ParallelWalker) walkAndEnqueue() error {
	return filepath.WalkDir(pw.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-pw.ctx.Done():
			return fs.SkipAll
		default:
		}

		if err != nil {
			if path == pw.root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if path != pw.root && pw.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(pw.root, path)
		if err != nil {
			//nolint:nilerr // skip this file but keep walking
			return nil
		}

		select {
		case pw.jobs <- fileJob{path: path, relPath: filepath.ToSlash(relPath), entry: d}:
		case <-pw.ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (pw *ParallelWalker) worker(id int) {
	defer pw.wg.Done()

	logging.Debug("Walker %d started", id)
	for job := range pw.jobs {
		if pw.ctx.Err() != nil {
			continue // drain
		}

		result := pw.processFile(job)
		if result.err == nil && result.asset != nil {
			pw.filesProcessed.Add(1)
		}
		pw.results <- result
	}
	logging.Debug("Walker %d finished", id)
}

func (pw *ParallelWalker) processFile(job fileJob) fileResult {
	info, err := job.entry.Info()
	if err != nil {
		return fileResult{err: fmt.Errorf("stat %s: %w", job.path, err)}
	}
	if !info.Mode().IsRegular() {
		return fileResult{}
	}

	return fileResult{asset: &database.Asset{
		Path:     job.relPath,
		Kind:     database.AssetKind(media.KindOf(job.relPath)),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		FileHash: Fingerprint(job.relPath, info.Size(), info.ModTime()),
	}}
}

// Fingerprint identifies one version of a file without reading it.
func Fingerprint(relPath string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s%d%d", relPath, size, modTime.UnixNano())))) //nolint:gosec // change fingerprint
}

// Stop cancels the walk.
func (pw *ParallelWalker) Stop() {
	pw.cancel()
}

// Stats returns processing counters.
func (pw *ParallelWalker) Stats() (files, errors int64) {
	return pw.filesProcessed.Load(), pw.errorsCount.Load()
}
