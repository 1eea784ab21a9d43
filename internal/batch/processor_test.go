package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

type job struct {
	id   string
	fail bool
}

func jobKey(j job) string { return j.id }

// recorder is a handler that records start order and call counts.
type recorder struct {
	mu      sync.Mutex
	started []string
	calls   map[string]int

	active    atomic.Int32
	maxActive atomic.Int32

	// block, when set, holds every handler until closed
	block chan struct{}
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string]int)}
}

func (r *recorder) handle(_ context.Context, j job) (string, error) {
	r.mu.Lock()
	r.started = append(r.started, j.id)
	r.calls[j.id]++
	r.mu.Unlock()

	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxActive.Load()
		if n <= m || r.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	if r.block != nil {
		<-r.block
	}

	if j.fail {
		return "", fmt.Errorf("decode %s: %w", j.id, errBadImage)
	}
	return "thumb:" + j.id, nil
}

func (r *recorder) startOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

func (r *recorder) callCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

var errBadImage = errors.New("bad image")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// =============================================================================
// Settling
// =============================================================================

func TestAllTasksSettleOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	p := New(rec.handle, jobKey, Options{BatchSize: 3, ItemDelay: -1})

	const n = 25
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Submit(context.Background(), job{id: fmt.Sprintf("img-%d", i)})
		}(i)
	}
	wg.Wait()
	p.Close()

	for i := 0; i < n; i++ {
		id := fmt.Sprintf("img-%d", i)
		if errs[i] != nil {
			t.Errorf("task %s error = %v", id, errs[i])
		}
		if results[i] != "thumb:"+id {
			t.Errorf("task %s result = %q", id, results[i])
		}
		if c := rec.callCount(id); c != 1 {
			t.Errorf("task %s processed %d times, want 1", id, c)
		}
	}

	if got := rec.maxActive.Load(); got > 3 {
		t.Errorf("max concurrent tasks = %d, want <= 3", got)
	}
}

func TestFIFOStartOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	release := make(chan struct{})
	rec.block = release

	p := New(rec.handle, jobKey, Options{BatchSize: 1, ItemDelay: -1})

	var wg sync.WaitGroup
	submit := func(id string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Submit(context.Background(), job{id: id}); err != nil {
				t.Errorf("Submit(%s) error = %v", id, err)
			}
		}()
	}

	submit("first")
	waitFor(t, "first task to start", func() bool { return len(rec.startOrder()) == 1 })

	ids := []string{"a", "b", "c", "d"}
	for i, id := range ids {
		submit(id)
		want := i + 1
		waitFor(t, id+" to queue", func() bool { return p.Stats().Queued == want })
	}

	close(release)
	wg.Wait()
	p.Close()

	want := append([]string{"first"}, ids...)
	if diff := cmp.Diff(want, rec.startOrder()); diff != "" {
		t.Errorf("start order mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// De-duplication and failure isolation
// =============================================================================

func TestConcurrentIdenticalRequestsGenerateOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	release := make(chan struct{})
	rec.block = release

	p := New(rec.handle, jobKey, Options{BatchSize: 4, ItemDelay: -1})

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.Submit(context.Background(), job{id: "oak-grey.jpg"})
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				return
			}
			results <- v
		}()
	}

	waitFor(t, "generation to start", func() bool { return rec.callCount("oak-grey.jpg") == 1 })
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)
	p.Close()

	got := 0
	for v := range results {
		got++
		if v != "thumb:oak-grey.jpg" {
			t.Errorf("result = %q", v)
		}
	}
	if got != callers {
		t.Errorf("received %d results, want %d", got, callers)
	}
	if c := rec.callCount("oak-grey.jpg"); c != 1 {
		t.Errorf("generations = %d, want 1", c)
	}
}

func TestFailureRejectsOnlyThatTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	p := New(rec.handle, jobKey, Options{BatchSize: 2, ItemDelay: time.Millisecond})
	defer p.Close()

	jobs := []job{{id: "ok-1"}, {id: "broken", fail: true}, {id: "ok-2"}}
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			_, errs[i] = p.Submit(context.Background(), j)
		}(i, j)
	}
	wg.Wait()

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("healthy tasks failed: %v, %v", errs[0], errs[2])
	}
	if !errors.Is(errs[1], errBadImage) {
		t.Errorf("broken task error = %v, want errBadImage", errs[1])
	}
}

// =============================================================================
// Cancellation and Close
// =============================================================================

func TestCallerCancellationDoesNotStopTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	release := make(chan struct{})
	rec.block = release

	p := New(rec.handle, jobKey, Options{BatchSize: 1, ItemDelay: -1})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx, job{id: "slow"})
		errCh <- err
	}()

	waitFor(t, "task start", func() bool { return rec.callCount("slow") == 1 })
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want Canceled", err)
	}

	close(release)
	waitFor(t, "task finish", func() bool { return rec.active.Load() == 0 })
	p.Close()

	if c := rec.callCount("slow"); c != 1 {
		t.Errorf("task ran %d times, want 1", c)
	}
}

func TestCloseRejectsQueuedAndWaitsForInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	release := make(chan struct{})
	rec.block = release

	p := New(rec.handle, jobKey, Options{BatchSize: 1, ItemDelay: -1})

	inflight := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), job{id: "running"})
		inflight <- err
	}()
	waitFor(t, "first task start", func() bool { return rec.callCount("running") == 1 })

	queued := make(chan error, 2)
	for _, id := range []string{"q1", "q2"} {
		go func(id string) {
			_, err := p.Submit(context.Background(), job{id: id})
			queued <- err
		}(id)
	}
	waitFor(t, "tasks to queue", func() bool { return p.Stats().Queued == 2 })

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	for i := 0; i < 2; i++ {
		if err := <-queued; !errors.Is(err, ErrClosed) {
			t.Errorf("queued task error = %v, want ErrClosed", err)
		}
	}

	select {
	case <-closed:
		t.Fatal("Close returned before in-flight task finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-closed

	if err := <-inflight; err != nil {
		t.Errorf("in-flight task error = %v, want nil", err)
	}
	if _, err := p.Submit(context.Background(), job{id: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close error = %v, want ErrClosed", err)
	}
	if rec.callCount("q1")+rec.callCount("q2") != 0 {
		t.Error("queued tasks ran after Close")
	}

	p.Close()
}

// =============================================================================
// Gate
// =============================================================================

type blockingGate struct {
	open chan struct{}
}

func (g *blockingGate) Wait(ctx context.Context) error {
	select {
	case <-g.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestGateHoldsCycles(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	gate := &blockingGate{open: make(chan struct{})}
	p := New(rec.handle, jobKey, Options{BatchSize: 2, ItemDelay: -1, Gate: gate})

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), job{id: "held"})
		done <- err
	}()

	waitFor(t, "task to queue", func() bool { return p.Stats().Queued == 1 })
	time.Sleep(20 * time.Millisecond)
	if rec.callCount("held") != 0 {
		t.Fatal("task started while gate was closed")
	}

	close(gate.open)
	if err := <-done; err != nil {
		t.Errorf("Submit() error = %v", err)
	}
	p.Close()
}

func TestDrainLoopStopsWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newRecorder()
	p := New(rec.handle, jobKey, Options{BatchSize: 2, ItemDelay: -1})

	if _, err := p.Submit(context.Background(), job{id: "one"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitFor(t, "drain loop to stop", func() bool { return !p.Stats().Draining })
	p.Close()
}
