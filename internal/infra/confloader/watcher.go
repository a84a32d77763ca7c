package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to configuration files. It watches the
// parent directory rather than the file itself, so the replace-by-
// rename dance editors do still counts as a change to the file.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *slog.Logger

	mu      sync.RWMutex
	onEvent []func(string)

	quit chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for watch events and failures.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates an idle watcher. Call Watch to add paths and
// StartAsync to begin delivering events.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:     fs,
		logger: slog.Default(),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers the directory containing path.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := w.fs.Add(dir); err != nil {
		w.logger.Error("cannot watch directory", "path", dir, "error", err)
		return err
	}
	w.logger.Debug("watching for config changes", "dir", dir, "file", filepath.Base(path))
	return nil
}

// OnChange registers a callback invoked with the path of each changed
// file. Callbacks run on the watcher goroutine and must not block.
func (w *Watcher) OnChange(fn func(string)) {
	w.mu.Lock()
	w.onEvent = append(w.onEvent, fn)
	w.mu.Unlock()
}

// Start delivers events until Stop. It blocks; servers use StartAsync.
func (w *Watcher) Start() {
	w.logger.Info("config watcher started")
	for {
		select {
		case <-w.quit:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// StartAsync runs Start on its own goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop ends event delivery and releases the underlying watcher.
func (w *Watcher) Stop() error {
	close(w.quit)
	if err := w.fs.Close(); err != nil {
		w.logger.Error("cannot close watcher", "error", err)
		return err
	}
	w.logger.Info("config watcher stopped")
	return nil
}

// handle forwards writes and creates to the callbacks. A rename-
// replace lands here as the Create of the final name.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	w.logger.Debug("configuration file changed", "file", ev.Name, "op", ev.Op.String())

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, fn := range w.onEvent {
		fn(ev.Name)
	}
}
