package indexer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spc-catalog/internal/display"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
	"spc-catalog/internal/metrics"
	"spc-catalog/internal/workers"
)

// ImageLister returns the asset paths worth pre-warming.
type ImageLister func(ctx context.Context) ([]string, error)

// WarmResult counts the outcome of one warm pass.
type WarmResult struct {
	Warmed  int64
	Cached  int64
	Failed  int64
	Skipped int64
}

// Warmer pre-generates thumbnails through the display pipeline so the first
// visitor after an index run hits a warm cache.
type Warmer struct {
	loader      display.Loader
	images      ImageLister
	sizes       []int
	concurrency int
}

// NewWarmer creates a warmer for the given sizes. Invalid sizes are dropped.
func NewWarmer(loader display.Loader, images ImageLister, sizes []int) *Warmer {
	valid := make([]int, 0, len(sizes))
	for _, s := range sizes {
		if s >= media.MinSize && s <= media.MaxSize {
			valid = append(valid, s)
		} else {
			logging.Warn("Ignoring thumbnail warm size %d (allowed %d..%d)", s, media.MinSize, media.MaxSize)
		}
	}
	return &Warmer{
		loader:      loader,
		images:      images,
		sizes:       valid,
		concurrency: workers.ForMixed(8),
	}
}

// Warm loads every listed image at every size. Failures are counted, not
// returned; only a failing lister or a cancelled context is an error.
func (w *Warmer) Warm(ctx context.Context) (WarmResult, error) {
	var res WarmResult
	if len(w.sizes) == 0 {
		return res, nil
	}

	paths, err := w.images(ctx)
	if err != nil {
		return res, err
	}

	start := time.Now()
	var warmed, cached, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, p := range paths {
		for _, size := range w.sizes {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				opts := media.DefaultOptions()
				opts.Size = size

				r, err := w.loader.Load(gctx, p, opts)
				switch {
				case err == nil && r.Cached:
					cached.Add(1)
					metrics.ThumbnailWarmTotal.WithLabelValues("cached").Inc()
				case err == nil:
					warmed.Add(1)
					metrics.ThumbnailWarmTotal.WithLabelValues("warmed").Inc()
				case errors.Is(err, media.ErrNotFound):
					skipped.Add(1)
					metrics.ThumbnailWarmTotal.WithLabelValues("missing").Inc()
				case gctx.Err() != nil:
					return gctx.Err()
				default:
					failed.Add(1)
					metrics.ThumbnailWarmTotal.WithLabelValues("error").Inc()
					logging.Debug("Warm %s@%d failed: %v", p, size, err)
				}
				return nil
			})
		}
	}

	err = g.Wait()
	res = WarmResult{Warmed: warmed.Load(), Cached: cached.Load(), Failed: failed.Load(), Skipped: skipped.Load()}
	logging.Info("Thumbnail warm: %d generated, %d already cached, %d missing, %d failed in %v",
		res.Warmed, res.Cached, res.Skipped, res.Failed, time.Since(start).Round(time.Millisecond))
	return res, err
}
