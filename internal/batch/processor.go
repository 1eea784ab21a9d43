package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
	"spc-catalog/internal/workers"
)

// ErrClosed is returned for tasks submitted to, or still queued in, a
// closed Processor.
var ErrClosed = errors.New("batch: processor closed")

// DefaultItemDelay is the spacing between task starts within a cycle.
const DefaultItemDelay = 10 * time.Millisecond

// HandlerFunc does the work for one request.
type HandlerFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// KeyFunc returns the de-duplication key for a request. Requests with equal
// keys submitted while one is pending share its result.
type KeyFunc[Req any] func(req Req) string

// Gate delays a new cycle while resources are short. *memory.Monitor
// satisfies it.
type Gate interface {
	Wait(ctx context.Context) error
}

// Options configures a Processor.
type Options struct {
	// BatchSize is the maximum number of tasks started per cycle.
	// Defaults to workers.ForCPU(4).
	BatchSize int
	// ItemDelay spaces out task starts within a cycle. Negative disables it.
	ItemDelay time.Duration
	// Gate, when set, is consulted before every cycle.
	Gate Gate
}

type result[Res any] struct {
	value Res
	err   error
}

type task[Req, Res any] struct {
	req      Req
	enqueued time.Time
	done     chan result[Res]
}

// Processor runs requests through a handler in FIFO order, a bounded number
// per cycle, with duplicate requests coalesced.
type Processor[Req, Res any] struct {
	handle    HandlerFunc[Req, Res]
	key       KeyFunc[Req]
	batchSize int
	limiter   *rate.Limiter
	gate      Gate
	group     singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	queue    []*task[Req, Res]
	draining bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Processor. The drain loop starts on the first Submit.
func New[Req, Res any](handle HandlerFunc[Req, Res], key KeyFunc[Req], opts Options) *Processor[Req, Res] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = workers.ForCPU(4)
	}

	delay := opts.ItemDelay
	if delay == 0 {
		delay = DefaultItemDelay
	}
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	ctx, cancel := context.WithCancel(context.Background())

	logging.Debug("Batch processor: batchSize=%d itemDelay=%v", opts.BatchSize, delay)

	return &Processor[Req, Res]{
		handle:    handle,
		key:       key,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
		gate:      opts.Gate,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit queues req and waits for its result. Cancelling ctx only stops
// this caller waiting: the task still runs and other callers sharing it
// still receive the result.
func (p *Processor[Req, Res]) Submit(ctx context.Context, req Req) (Res, error) {
	var zero Res

	if p.isClosed() {
		metrics.BatchTasksTotal.WithLabelValues("closed").Inc()
		return zero, ErrClosed
	}

	leader := false
	ch := p.group.DoChan(p.key(req), func() (any, error) {
		leader = true
		return p.enqueue(req)
	})

	select {
	case r := <-ch:
		if !leader {
			metrics.BatchDeduplicatedTotal.Inc()
		}
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Val.(Res)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *Processor[Req, Res]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// enqueue appends a task, starts the drain loop if idle and blocks until
// the task settles.
func (p *Processor[Req, Res]) enqueue(req Req) (Res, error) {
	t := &task[Req, Res]{
		req:      req,
		enqueued: time.Now(),
		done:     make(chan result[Res], 1),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		metrics.BatchTasksTotal.WithLabelValues("closed").Inc()
		var zero Res
		return zero, ErrClosed
	}
	p.queue = append(p.queue, t)
	metrics.BatchQueueDepth.Set(float64(len(p.queue)))
	if !p.draining {
		p.draining = true
		metrics.BatchDraining.Set(1)
		p.wg.Add(1)
		go p.drain()
	}
	p.mu.Unlock()

	r := <-t.done
	return r.value, r.err
}

// drain runs cycles until the queue is empty. Only one drain loop runs at a
// time.
func (p *Processor[Req, Res]) drain() {
	defer p.wg.Done()

	for {
		if p.gate != nil {
			if err := p.gate.Wait(p.ctx); err != nil {
				logging.Debug("Batch processor: gate wait ended: %v", err)
			}
		}

		cycle := p.nextCycle()
		if cycle == nil {
			return
		}

		metrics.BatchCyclesTotal.Inc()
		p.runCycle(cycle)
	}
}

// nextCycle dequeues up to batchSize tasks, or clears the draining flag and
// returns nil when there is nothing to do.
func (p *Processor[Req, Res]) nextCycle() []*task[Req, Res] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.queue) == 0 {
		p.draining = false
		metrics.BatchDraining.Set(0)
		return nil
	}

	n := min(p.batchSize, len(p.queue))
	cycle := make([]*task[Req, Res], n)
	copy(cycle, p.queue[:n])
	p.queue = append(p.queue[:0:0], p.queue[n:]...)
	metrics.BatchQueueDepth.Set(float64(len(p.queue)))

	return cycle
}

func (p *Processor[Req, Res]) runCycle(cycle []*task[Req, Res]) {
	var wg sync.WaitGroup
	runCtx := context.WithoutCancel(p.ctx)

	for _, t := range cycle {
		// Dequeued tasks are in flight and start even while closing
		_ = p.limiter.Wait(p.ctx)

		metrics.BatchTaskWait.Observe(time.Since(t.enqueued).Seconds())

		wg.Add(1)
		go func(t *task[Req, Res]) {
			defer wg.Done()
			v, err := p.handle(runCtx, t.req)
			if err != nil {
				metrics.BatchTasksTotal.WithLabelValues("rejected").Inc()
			} else {
				metrics.BatchTasksTotal.WithLabelValues("resolved").Inc()
			}
			t.done <- result[Res]{value: v, err: err}
		}(t)
	}

	wg.Wait()
}

// Close rejects queued tasks with ErrClosed, waits for in-flight tasks and
// stops the drain loop. Later Submits fail with ErrClosed.
func (p *Processor[Req, Res]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pending := p.queue
	p.queue = nil
	metrics.BatchQueueDepth.Set(0)
	p.mu.Unlock()

	for _, t := range pending {
		metrics.BatchTasksTotal.WithLabelValues("closed").Inc()
		t.done <- result[Res]{err: ErrClosed}
	}
	if len(pending) > 0 {
		logging.Info("Batch processor: rejected %d queued tasks on close", len(pending))
	}

	p.cancel()
	p.wg.Wait()
}

// Stats is a snapshot of processor state.
type Stats struct {
	Queued   int
	Draining bool
	Closed   bool
}

// Stats returns the current queue length and flags.
func (p *Processor[Req, Res]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Queued: len(p.queue), Draining: p.draining, Closed: p.closed}
}
