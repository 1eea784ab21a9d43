package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spc-catalog/internal/media"
)

// gatedLoader blocks each source until released.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	errs  map[string]error
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{gates: make(map[string]chan struct{}), errs: make(map[string]error)}
}

func (g *gatedLoader) gate(src string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[src]
	if !ok {
		ch = make(chan struct{})
		g.gates[src] = ch
	}
	return ch
}

func (g *gatedLoader) release(src string) {
	close(g.gate(src))
}

func (g *gatedLoader) Load(ctx context.Context, src string, opts media.Options) (Result, error) {
	select {
	case <-g.gate(src):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	g.mu.Lock()
	err := g.errs[src]
	g.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	return Result{
		Thumbnail: &media.Thumbnail{Source: src, Data: []byte(src)},
		Request:   media.Request{Source: src, Options: opts},
		Class:     ClassSmall,
	}, nil
}

func TestComponentLoadingToLoaded(t *testing.T) {
	loader := newGatedLoader()

	var mu sync.Mutex
	var states []State
	c := New(loader, func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	c.Mount(context.Background(), "a.jpg", media.DefaultOptions())
	if got := c.Snapshot().State; got != StateLoading {
		t.Fatalf("state after Mount = %q, want loading", got)
	}

	loader.release("a.jpg")
	snap, err := c.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if snap.State != StateLoaded || snap.Thumbnail == nil || snap.Thumbnail.Source != "a.jpg" {
		t.Errorf("snapshot = %+v, want loaded a.jpg", snap)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateLoading || states[1] != StateLoaded {
		t.Errorf("state transitions = %v, want [loading loaded]", states)
	}
}

func TestComponentErrorState(t *testing.T) {
	loader := newGatedLoader()
	loader.errs["bad.jpg"] = media.ErrDecode
	loader.release("bad.jpg")

	c := New(loader, nil)
	c.Mount(context.Background(), "bad.jpg", media.DefaultOptions())

	snap, _ := c.Wait(context.Background())
	if snap.State != StateError || !errors.Is(snap.Err, media.ErrDecode) {
		t.Errorf("snapshot = %+v, want error state with ErrDecode", snap)
	}
}

func TestComponentIgnoresSupersededResult(t *testing.T) {
	loader := newGatedLoader()
	c := New(loader, nil)

	c.Mount(context.Background(), "old.jpg", media.DefaultOptions())
	c.Update(context.Background(), "new.jpg", media.DefaultOptions())

	loader.release("new.jpg")
	snap, _ := c.Wait(context.Background())
	if snap.Source != "new.jpg" || snap.State != StateLoaded {
		t.Fatalf("snapshot = %+v, want loaded new.jpg", snap)
	}

	loader.release("old.jpg")
	time.Sleep(20 * time.Millisecond)

	if got := c.Snapshot(); got.Source != "new.jpg" || got.Thumbnail.Source != "new.jpg" {
		t.Errorf("late result overwrote state: %+v", got)
	}
}

func TestComponentUnmountDropsResult(t *testing.T) {
	loader := newGatedLoader()
	c := New(loader, nil)

	c.Mount(context.Background(), "a.jpg", media.DefaultOptions())
	c.Unmount()

	if c.Mounted() {
		t.Error("Mounted() = true after Unmount")
	}

	loader.release("a.jpg")
	time.Sleep(20 * time.Millisecond)

	if got := c.Snapshot().State; got != StateLoading {
		t.Errorf("state after unmounted settle = %q, want loading", got)
	}

	// Wait on an unmounted component returns immediately
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Wait(ctx); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestResolve(t *testing.T) {
	loader := newGatedLoader()
	loader.release("a.jpg")

	snap := Resolve(context.Background(), loader, "a.jpg", media.DefaultOptions())
	if snap.State != StateLoaded {
		t.Errorf("Resolve() state = %q, want loaded", snap.State)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap = Resolve(ctx, loader, "never.jpg", media.DefaultOptions())
	if snap.State != StateError || !errors.Is(snap.Err, context.DeadlineExceeded) {
		t.Errorf("Resolve(timeout) = %+v, want error with DeadlineExceeded", snap)
	}
}
