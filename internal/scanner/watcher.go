package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marco/mediaVault/internal/fsx"
)

// ChangeHandler is called once a changed media file has been quiet for the
// debounce delay.
type ChangeHandler func(path string)

// Watcher monitors library roots for new or rewritten media files. It uses
// the real filesystem; the scanner's allow-list and ignore patterns decide
// which events matter.
type Watcher struct {
	scanner       *Scanner
	roots         []string
	debounceDelay time.Duration
	handler       ChangeHandler
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	doneChan      chan struct{}
	logger        *slog.Logger

	mu            sync.Mutex
	pendingTimers map[string]*time.Timer
}

// NewWatcher creates a watcher over roots.
func NewWatcher(s *Scanner, roots []string, debounce time.Duration, handler ChangeHandler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		cleaned = append(cleaned, filepath.Clean(r))
	}

	return &Watcher{
		scanner:       s,
		roots:         cleaned,
		debounceDelay: debounce,
		handler:       handler,
		watcher:       fsWatcher,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
		logger:        s.logger,
		pendingTimers: make(map[string]*time.Timer),
	}, nil
}

// Start registers every root recursively and begins processing events.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		if err := w.addDirectory(root, root); err != nil {
			w.Close()
			return err
		}
	}

	go w.processEvents()

	w.logger.Info("file watcher started",
		"roots", len(w.roots),
		"debounce_seconds", w.debounceDelay.Seconds(),
	)
	return nil
}

// Stop ends the event loop and cancels pending timers.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	<-w.doneChan

	w.mu.Lock()
	for path, timer := range w.pendingTimers {
		timer.Stop()
		delete(w.pendingTimers, path)
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

// Close releases the fsnotify handle without starting the event loop.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addDirectory(root, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if p != root && w.scanner.IsIgnored(root, p) {
			w.logger.Debug("skipping ignored directory", "path", p)
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			w.logger.Warn("failed to add directory to watch", "path", p, "error", err)
		} else {
			w.logger.Debug("watching directory", "path", p)
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	root := w.rootFor(path)
	if root == "" {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.scanner.IsIgnored(root, path) {
				if err := w.addDirectory(root, path); err != nil {
					w.logger.Warn("failed to add new directory to watch", "path", path, "error", err)
				} else {
					w.logger.Info("new directory detected, now watching", "path", path)
				}
			}
			return
		}
	}

	name := filepath.Base(path)
	if fsx.IsTempName(name) || !w.scanner.IsMediaFile(name) || w.scanner.IsIgnored(root, path) {
		return
	}

	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
		w.logger.Debug("file event detected", "event", event.Op.String(), "file", name)
		w.scheduleProcessing(path)
	}
}

// rootFor returns the watched root containing path, or "".
func (w *Watcher) rootFor(path string) string {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// scheduleProcessing restarts the debounce timer for path.
func (w *Watcher) scheduleProcessing(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pendingTimers[path]; exists {
		timer.Stop()
	}
	w.pendingTimers[path] = time.AfterFunc(w.debounceDelay, func() {
		w.fire(path)
	})
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pendingTimers, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Debug("file no longer exists, skipping", "path", path)
			return
		}
		w.logger.Error("failed to stat file", "path", path, "error", err)
		return
	}
	if info.IsDir() {
		return
	}

	w.logger.Info("media file settled", "path", path, "size", info.Size())
	w.handler(path)
}

// Pending reports how many files are waiting out their debounce delay.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingTimers)
}
