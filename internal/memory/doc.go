// Package memory keeps the Go heap inside container limits.
//
// Configure derives GOMEMLIMIT from the container memory limit (usually
// passed in through the Kubernetes Downward API as MEMORY_LIMIT) and a ratio
// that leaves headroom for libvips and decoder buffers. An explicit
// GOMEMLIMIT always takes precedence.
//
//	memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
//
// Monitor samples heap allocation and pauses thumbnail work when usage
// crosses the critical water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.Wait(ctx); err != nil {
//	    return err
//	}
//
// Work resumes once usage drops below the high water mark. GOMEMLIMIT is a
// soft limit and does not cover cgo allocations, so the ratio should be
// lowered when libvips handles large sources.
package memory
