package livereload

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/tain335/svpack/internal/logger"
)

// Watcher reports batches of changed paths below a set of directories,
// waiting for Debounce of quiet time before each batch.
type Watcher struct {
	Debounce time.Duration
	// Skip excludes directories (and everything below them) from watching.
	Skip func(path string) bool

	internalWatcher *fsnotify.Watcher
	onChange        func(paths []string)
	log             zerolog.Logger

	mutex   sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	done    chan struct{}
	closed  bool
}

func NewWatcher(debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Debounce:        debounce,
		internalWatcher: w,
		onChange:        onChange,
		log:             logger.Get("watcher"),
		pending:         make(map[string]struct{}),
		done:            make(chan struct{}),
	}, nil
}

// AddRecursive watches dir and every directory below it, creating dir when
// it does not exist yet.
func (w *Watcher) AddRecursive(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.Skip != nil && w.Skip(path) {
			return filepath.SkipDir
		}
		if err := w.internalWatcher.Add(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("cannot watch directory")
		}
		return nil
	})
}

// Start processes events until Close.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.internalWatcher.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-w.internalWatcher.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("watch error")
			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.Skip == nil || !w.Skip(event.Name) {
				_ = w.AddRecursive(event.Name)
			}
		}
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return
	}
	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mutex.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mutex.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mutex.Unlock()

	sort.Strings(paths)
	w.onChange(paths)
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.closed {
		w.mutex.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mutex.Unlock()
	close(w.done)
	return w.internalWatcher.Close()
}
