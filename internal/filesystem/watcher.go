package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"spc-catalog/internal/logging"
)

// ChangeFunc is called with the absolute path of a file that was written,
// created, removed or renamed under the watched root.
type ChangeFunc func(path string)

// Watcher watches an asset tree recursively and reports file changes.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	onChange ChangeFunc
	watched  atomic.Int64
	wg       sync.WaitGroup
	closeMu  sync.Once
}

// NewWatcher creates a watcher for root. Nothing is watched until Start.
func NewWatcher(root string, onChange ChangeFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		observe().ObserveWatcherError()
		return nil, err
	}
	return &Watcher{
		root:     root,
		fsw:      fsw,
		onChange: onChange,
	}, nil
}

// Start registers every directory under root and processes events until
// ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	count := w.addTree(w.root)
	logging.Debug("Asset watcher started, watching %d directories under %s", count, w.root)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents(ctx)
	}()
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeMu.Do(func() {
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// WatchedDirectories returns the number of directories registered.
func (w *Watcher) WatchedDirectories() int {
	return int(w.watched.Load())
}

func (w *Watcher) addTree(root string) int {
	added := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			observe().ObserveWatcherError()
			return nil
		}
		added++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk asset directory for watcher: %v", err)
		observe().ObserveWatcherError()
	}
	w.watched.Add(int64(added))
	return added
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			observe().ObserveWatcherError()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if strings.Contains(event.Name, string(filepath.Separator)+".") {
		return
	}

	eventType := eventTypeName(event.Op)
	observe().ObserveWatcherEvent(eventType)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			n := w.addTree(event.Name)
			logging.Debug("Added %d new directories to watcher under %s", n, event.Name)
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if w.onChange != nil {
		w.onChange(event.Name)
	}
}

func eventTypeName(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
