// Package display orchestrates thumbnail loading.
//
// Pipeline is the shared machinery: it probes the source, classifies it as
// small, medium or large, caps size and quality for large sources, consults
// the thumbnail cache and on a miss submits the request to the batch
// processor. The batch task generates the thumbnail and writes it to the
// cache.
//
// Component is the per-view state machine on top of it: loading, then loaded
// or error. Every Mount or Update starts a new run; a result that arrives for
// a superseded run, or after Unmount, is discarded.
//
//	c := display.New(pipeline, func(s display.Snapshot) { ... })
//	c.Mount(ctx, "products/oak-grey.jpg", media.DefaultOptions())
//	snap, _ := c.Wait(ctx)
package display
