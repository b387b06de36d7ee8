package tracker

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounceDelay coalesces bursts of filesystem events into one signal.
const DefaultDebounceDelay = 250 * time.Millisecond

// SkipFunc reports whether a root-relative, slash-separated path should be
// ignored by the watcher.
type SkipFunc func(rel string, isDir bool) bool

// Watcher signals when files are created, removed or renamed anywhere under
// a project root. Writes and permission changes do not alter the file set
// and are not reported.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	skip    SkipFunc
	logger  *zap.Logger

	changes chan struct{}
	errors  chan error
	done    chan struct{}

	mu            sync.Mutex
	debounceDelay time.Duration
	timer         *time.Timer
	closed        bool
}

// NewWatcher watches root and every directory below it that skip does not
// exclude. A nil skip watches everything.
func NewWatcher(root string, skip SkipFunc, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if skip == nil {
		skip = func(string, bool) bool { return false }
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:       watcher,
		root:          filepath.Clean(root),
		skip:          skip,
		logger:        logger,
		changes:       make(chan struct{}, 1),
		errors:        make(chan error, 10),
		done:          make(chan struct{}),
		debounceDelay: DefaultDebounceDelay,
	}

	if err := w.addRecursive(w.root); err != nil {
		watcher.Close()
		return nil, err
	}

	go w.processEvents()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "" && w.skip(rel, true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
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
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("Dropping watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	isDir := false
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			isDir = true
		}
	}
	if w.skip(rel, isDir) {
		return
	}

	if isDir {
		if err := w.addRecursive(event.Name); err != nil {
			select {
			case w.errors <- err:
			default:
			}
		}
	}

	w.logger.Debug("Filesystem change", zap.String("path", rel), zap.String("op", event.Op.String()))
	w.debounce()
}

func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDelay, w.signal)
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	case <-w.done:
	default:
		// A signal is already waiting.
	}
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// Changes delivers one value per debounced burst of changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors returns the channel for receiving watcher errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
