package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches the loaded config file on disk and triggers Reload
// whenever it changes, complementing SIGHUP-triggered reload with editors
// and config-management tools that rewrite the file directly.
type FileWatcher struct {
	fsw      *fsnotify.Watcher
	path     string
	logger   *slog.Logger
	stopOnce sync.Once
	doneCh   chan struct{}
}

// WatchFileOption configures a FileWatcher.
type WatchFileOption func(*FileWatcher)

// WithFileWatcherLogger sets the logger used by the FileWatcher.
func WithFileWatcherLogger(logger *slog.Logger) WatchFileOption {
	return func(w *FileWatcher) {
		w.logger = logger
	}
}

// NewFileWatcher watches path (the active config file) for writes and
// invokes Reload on change. fsnotify watches the containing directory, not
// the file itself, since editors commonly replace a file by rename rather
// than writing in place.
func NewFileWatcher(path string, opts ...WatchFileOption) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(expandHome(path))
	if err != nil {
		fsw.Close()
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &FileWatcher{
		fsw:    fsw,
		path:   absPath,
		logger: slog.Default(),
		doneCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching in a background goroutine. It returns immediately.
func (w *FileWatcher) Start() {
	go w.run()
}

func (w *FileWatcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("config file changed on disk; reloading", "path", w.path)
			if err := Reload(); err != nil {
				w.logger.Error("config reload from file watch failed", "error", err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config file watcher error", "error", err)
		}
	}
}

// Stop closes the underlying fsnotify watcher and waits for run to exit.
func (w *FileWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsw.Close()
		<-w.doneCh
	})
	return err
}
