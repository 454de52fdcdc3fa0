// Package watcher triggers revalidation when repository files change.
//
// Events are debounced: a burst of writes produces one trigger after the
// quiet period. The watcher only signals; the caller decides what a
// trigger means. Saves that don't change content cost nothing downstream
// because the tree identity stays the same.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a
// trigger fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree and emits debounced change triggers.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   map[string]bool

	fs       *fsnotify.Watcher
	triggers chan struct{}
	done     chan struct{}
	debugLog func(format string, args ...interface{})
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the debounce interval. Non-positive values are
// ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnoreDirs sets directory names the watcher never descends into.
func WithIgnoreDirs(names []string) Option {
	return func(w *Watcher) {
		w.ignore = make(map[string]bool, len(names))
		for _, name := range names {
			w.ignore[name] = true
		}
	}
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.debugLog = fn
		}
	}
}

// New creates a Watcher over the directory tree rooted at root and
// starts watching. Close releases it.
func New(root string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		ignore:   map[string]bool{".git": true, ".gatecheck": true, "node_modules": true, "vendor": true},
		triggers: make(chan struct{}, 1),
		done:     make(chan struct{}),
		debugLog: func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	// The repo bookkeeping dirs stay ignored no matter what the config
	// says, otherwise every validation would retrigger the watcher.
	w.ignore[".git"] = true
	w.ignore[".gatecheck"] = true

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w.fs = fs

	if err := w.addTree(root); err != nil {
		fs.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Triggers returns the channel change triggers are delivered on. The
// channel has capacity one; triggers during a validation coalesce.
func (w *Watcher) Triggers() <-chan struct{} {
	return w.triggers
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

// addTree registers root and every non-ignored directory under it.
// fsnotify watches are not recursive, so each directory is added
// individually.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.debugLog("[watcher] add %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(name string) bool {
	return w.ignore[name] || strings.HasPrefix(name, ".gatecheck")
}

// loop collects events and fires a trigger after the debounce interval
// passes without further events. Newly created directories are added to
// the watch set as they appear.
func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignoredPath(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.debugLog("[watcher] watch new dir %s: %v", event.Name, err)
					}
				}
			}
			w.debugLog("[watcher] %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.triggers <- struct{}{}:
			default:
				// A trigger is already pending; coalesce.
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.debugLog("[watcher] error: %v", err)
		}
	}
}

// ignoredPath reports whether any path element is an ignored directory.
func (w *Watcher) ignoredPath(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if w.ignored(part) {
			return true
		}
	}
	return false
}
