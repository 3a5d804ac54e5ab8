package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/livecue/clock"
	"github.com/kbukum/livecue/component"
	"github.com/kbukum/livecue/logger"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// LoadFunc receives the full content of a watched file.
type LoadFunc func(path string, content []byte) error

// Watcher reloads registered files on change.
type Watcher struct {
	debounce time.Duration
	clock    clock.Clock
	log      *logger.Logger

	mu      sync.Mutex
	targets map[string]*target
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

type target struct {
	path    string
	load    LoadFunc
	timer   clock.Timer
	loads   int
	lastErr error
}

var (
	_ component.Component   = (*Watcher)(nil)
	_ component.Describable = (*Watcher)(nil)
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithClock sets the clock driving the debounce.
func WithClock(c clock.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// New creates a watcher with no files.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		debounce: DefaultDebounce,
		clock:    clock.Real(),
		targets:  make(map[string]*target),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get("watcher")
	}
	return w
}

// Watch registers path. It must be called before Start.
func (w *Watcher) Watch(path string, fn LoadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watcher: resolve %s: %w", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return errors.New("watcher: already started")
	}
	w.targets[abs] = &target{path: abs, load: fn}
	return nil
}

// Name implements component.Component.
func (w *Watcher) Name() string { return "watcher" }

// Start loads every registered file once and begins watching their
// directories. A missing file is logged and loaded when it appears.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for _, t := range w.targets {
		w.loadLocked(t)
		dirs[filepath.Dir(t.path)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watcher: watch %s: %w", dir, err)
		}
	}

	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(lctx, fsw, w.done)

	w.log.Info("watching files", logger.Fields("files", len(w.targets), "dirs", len(dirs)))
	return nil
}

// Stop ends watching. Pending reloads are dropped.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	fsw, cancel, done := w.fsw, w.cancel, w.done
	w.fsw = nil
	for _, t := range w.targets {
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
	w.mu.Unlock()

	cancel()
	err := fsw.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Health reports degraded while the last load of any file failed.
func (w *Watcher) Health(context.Context) component.Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	var failing []string
	for _, t := range w.targets {
		if t.lastErr != nil {
			failing = append(failing, filepath.Base(t.path))
		}
	}
	if len(failing) == 0 {
		return component.Health{Name: w.Name(), Status: component.StatusHealthy}
	}
	sort.Strings(failing)
	return component.Health{
		Name:    w.Name(),
		Status:  component.StatusDegraded,
		Message: fmt.Sprintf("failed to load %v", failing),
	}
}

// Describe lists the watched files for the startup log.
func (w *Watcher) Describe() component.Description {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.targets))
	for p := range w.targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return component.Description{Type: "watcher", Details: fmt.Sprint(paths)}
}

// Loads returns how many times path was loaded successfully.
func (w *Watcher) Loads(path string) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.targets[abs]; ok {
		return t.loads
	}
	return 0
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", logger.ErrorFields("watcher", err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.targets[filepath.Clean(ev.Name)]
	if !ok || w.fsw == nil {
		return
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		// The last content stays in effect; a replacing save follows with Create.
		w.log.Debug("watched file removed", logger.Fields("path", t.path))
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = w.clock.AfterFunc(w.debounce, func() { w.fire(t) })
}

func (w *Watcher) fire(t *target) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	t.timer = nil
	w.loadLocked(t)
}

// loadLocked reads and delivers t. The load func runs under w.mu so
// reloads of one file never overlap.
func (w *Watcher) loadLocked(t *target) {
	content, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		w.log.Warn("watched file missing", logger.Fields("path", t.path))
		return
	}
	if err == nil {
		err = t.load(t.path, content)
	}
	t.lastErr = err
	if err != nil {
		w.log.Error("reload failed", logger.Fields("path", t.path, logger.FieldError, err.Error()))
		return
	}
	t.loads++
	w.log.Info("file loaded", logger.Fields("path", t.path, "bytes", len(content), "loads", t.loads))
}
