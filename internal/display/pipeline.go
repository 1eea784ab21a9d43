package display

import (
	"context"
	"fmt"

	"spc-catalog/internal/batch"
	"spc-catalog/internal/media"
	"spc-catalog/internal/metrics"
	"spc-catalog/internal/thumbcache"
)

// Generator produces one thumbnail. *media.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req media.Request) (*media.Thumbnail, error)
}

// Prober reads source size and dimensions. *media.Store satisfies it.
type Prober interface {
	Probe(rel string) (media.SourceInfo, error)
}

// Result is the outcome of a successful load.
type Result struct {
	Thumbnail *media.Thumbnail
	Request   media.Request
	Class     SizeClass
	Cached    bool
}

// Pipeline connects the thumbnail cache, the batch processor and the
// generator. Generated thumbnails are stored by the batch task itself, so a
// caller that stops waiting still leaves a warm cache behind.
type Pipeline struct {
	cache *thumbcache.Cache[*media.Thumbnail]
	proc  *batch.Processor[media.Request, *media.Thumbnail]
	probe Prober
}

// NewPipeline builds a pipeline and its batch processor.
func NewPipeline(cache *thumbcache.Cache[*media.Thumbnail], gen Generator, probe Prober, opts batch.Options) *Pipeline {
	p := &Pipeline{cache: cache, probe: probe}

	p.proc = batch.New(func(ctx context.Context, req media.Request) (*media.Thumbnail, error) {
		// An earlier cycle may have produced it already
		if th, ok := cache.Get(req.Key()); ok {
			return th, nil
		}
		th, err := gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		cache.SetFrom(req.Key(), req.Source, th, th.Size())
		return th, nil
	}, media.RequestKey, opts)

	return p
}

// Cache returns the pipeline's cache.
func (p *Pipeline) Cache() *thumbcache.Cache[*media.Thumbnail] {
	return p.cache
}

// Load returns the thumbnail of source, from the cache when possible.
// Large sources have their options capped before the lookup.
func (p *Pipeline) Load(ctx context.Context, source string, opts media.Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	source = media.Clean(source)
	info, err := p.probe.Probe(source)
	if err != nil {
		return Result{}, err
	}

	class := Classify(info)
	metrics.ThumbnailSourceClass.WithLabelValues(string(class)).Inc()

	req := media.Request{Source: source, Options: Adjust(opts, class)}
	res := Result{Request: req, Class: class}

	if th, ok := p.cache.Get(req.Key()); ok {
		res.Thumbnail = th
		res.Cached = true
		return res, nil
	}

	th, err := p.proc.Submit(ctx, req)
	if err != nil {
		return res, fmt.Errorf("thumbnail %s: %w", source, err)
	}

	res.Thumbnail = th
	return res, nil
}

// Stats returns the batch processor state.
func (p *Pipeline) Stats() batch.Stats {
	return p.proc.Stats()
}

// Close stops the batch processor.
func (p *Pipeline) Close() {
	p.proc.Close()
}
