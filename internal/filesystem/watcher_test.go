package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type changeRecorder struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newChangeRecorder() *changeRecorder {
	return &changeRecorder{ch: make(chan string, 64)}
}

func (r *changeRecorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *changeRecorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change on %s", want)
		}
	}
}

func TestEventTypeName(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, "chmod"},
		{fsnotify.Write | fsnotify.Chmod, "write"},
		{0, "unknown"},
	}

	for _, tt := range tests {
		if got := eventTypeName(tt.op); got != tt.want {
			t.Errorf("eventTypeName(%v) = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_SkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"products", "products/oak", ".cache"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher(root, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// root, products, products/oak
	if got := w.WatchedDirectories(); got != 3 {
		t.Errorf("WatchedDirectories() = %d, want 3", got)
	}
}

func TestWatcher_ReportsWritesAndRemovals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem notification test in short mode")
	}

	root := t.TempDir()
	rec := newChangeRecorder()

	w, err := NewWatcher(root, rec.record)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	file := filepath.Join(root, "panel.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, file)

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, file)
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem notification test in short mode")
	}

	root := t.TempDir()
	rec := newChangeRecorder()

	w, err := NewWatcher(root, rec.record)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	sub := filepath.Join(root, "collections")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.WatchedDirectories() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if w.WatchedDirectories() < 2 {
		t.Fatalf("new directory was not registered")
	}

	file := filepath.Join(sub, "hero.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, file)
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start(context.Background())

	if err := w.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
