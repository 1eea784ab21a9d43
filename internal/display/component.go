package display

import (
	"context"
	"sync"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
)

// State is the display state of a thumbnail.
type State string

const (
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Loader resolves a thumbnail. *Pipeline satisfies it.
type Loader interface {
	Load(ctx context.Context, source string, opts media.Options) (Result, error)
}

// Snapshot is the observable state of a Component.
type Snapshot struct {
	State     State
	Source    string
	Options   media.Options
	Class     SizeClass
	Cached    bool
	Thumbnail *media.Thumbnail
	Err       error
}

// run is one load started by Mount or Update.
type run struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *run) finish() {
	r.once.Do(func() {
		r.cancel()
		close(r.done)
	})
}

// Component drives one thumbnail through loading to loaded or error. Each
// Mount or Update starts a new run; results of superseded or unmounted runs
// are dropped.
type Component struct {
	loader   Loader
	onChange func(Snapshot)

	mu      sync.Mutex
	seq     uint64
	cur     *run
	mounted bool
	snap    Snapshot
}

// New creates an unmounted component. onChange, if set, is called after
// every state change, outside the component's lock.
func New(loader Loader, onChange func(Snapshot)) *Component {
	return &Component{loader: loader, onChange: onChange}
}

// Mount starts loading source. It is equivalent to Update.
func (c *Component) Mount(ctx context.Context, source string, opts media.Options) {
	c.Update(ctx, source, opts)
}

// Update starts loading with new props, superseding any load in progress.
func (c *Component) Update(ctx context.Context, source string, opts media.Options) {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cur != nil {
		c.cur.finish()
	}
	c.seq++
	r := &run{id: c.seq, cancel: cancel, done: make(chan struct{})}
	c.cur = r
	c.mounted = true
	c.snap = Snapshot{State: StateLoading, Source: source, Options: opts}
	snap := c.snap
	c.mu.Unlock()

	c.notify(snap)

	go c.load(runCtx, r, source, opts)
}

func (c *Component) load(ctx context.Context, r *run, source string, opts media.Options) {
	res, err := c.loader.Load(ctx, source, opts)

	c.mu.Lock()
	if c.cur != r {
		c.mu.Unlock()
		logging.Debug("Display: dropping late result %d for %s", r.id, source)
		return
	}

	next := Snapshot{
		Source:  source,
		Options: res.Request.Options,
		Class:   res.Class,
	}
	if err != nil {
		next.State = StateError
		next.Options = opts
		next.Err = err
	} else {
		next.State = StateLoaded
		next.Thumbnail = res.Thumbnail
		next.Cached = res.Cached
	}
	c.snap = next
	r.finish()
	c.mu.Unlock()

	c.notify(next)
}

func (c *Component) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// Unmount drops any load in progress. Its result will be ignored.
func (c *Component) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mounted = false
	if c.cur != nil {
		c.cur.finish()
		c.cur = nil
	}
}

// Mounted reports whether the component is mounted.
func (c *Component) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Snapshot returns the current state.
func (c *Component) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Wait blocks until the current run settles or is superseded, then returns
// the state at that moment.
func (c *Component) Wait(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()

	if r != nil {
		select {
		case <-r.done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

// Resolve mounts a throwaway component, waits for it to settle and returns
// the final snapshot. HTTP handlers use it for one-shot requests.
func Resolve(ctx context.Context, loader Loader, source string, opts media.Options) Snapshot {
	c := New(loader, nil)
	c.Mount(ctx, source, opts)
	defer c.Unmount()

	snap, err := c.Wait(ctx)
	if err != nil && snap.State == StateLoading {
		snap.State = StateError
		snap.Err = err
	}
	return snap
}
