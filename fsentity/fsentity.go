// Package fsentity turns a directory tree into an event-emitting entity. A
// Watcher embeds rigging.Emitter and triggers "add", "change", and "remove"
// events with the file's slash-separated relative path as the argument, so
// filesystem activity can be consumed with the same On/ListenTo/Bindings
// surface as any other entity:
//
//	w := fsentity.New("/var/lib/app/content")
//	rigging.BindEntityEvents(indexer, w, rigging.Bindings{
//		"add change": "Reindex",
//		"remove":     "Drop",
//	})
//	if err := w.Start(ctx); err != nil { ... }
package fsentity

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tautline/rigging-go"
	"github.com/tautline/rigging-go/internal/evlog"
)

// Event names triggered by a Watcher. The path argument is relative to the
// watched root and slash-separated.
const (
	EventAdd    = "add"
	EventChange = "change"
	EventRemove = "remove"
)

// Watcher watches a file tree and emits entity events for it. Events
// describe changes observed after Start; pre-existing files produce no
// events (list them with Files). OS-rooted watchers use fsnotify; generic
// fs.FS watchers poll by snapshot diffing.
type Watcher struct {
	rigging.Emitter

	fsys         fs.FS
	osRoot       string
	pollInterval time.Duration
	debounce     time.Duration
	log          *slog.Logger

	changed rigging.Signal

	startOnce sync.Once
	startErr  error
	cancel    context.CancelFunc
	running   atomic.Bool

	mu         sync.Mutex
	debouncers map[string]*debouncer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPollInterval sets how often snapshot-diff polling runs. Polling is the
// only mechanism for fs.FS roots; for OS roots it is the fallback when
// fsnotify is unavailable.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithDebounce configures the per-path change debounce interval. Set to 0 to
// emit every write.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for watch-loop diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New watches an OS directory tree rooted at root. The root is resolved to
// an absolute, symlink-free path so fsnotify event paths map back under it;
// a missing root defers its error to the watch loop.
func New(root string, opts ...Option) *Watcher {
	w := newWatcher(opts...)
	if !filepath.IsAbs(root) {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	w.osRoot = root
	w.fsys = os.DirFS(root)
	return w
}

// NewFS watches a generic filesystem by polling. The default interval is two
// seconds.
func NewFS(fsys fs.FS, opts ...Option) *Watcher {
	w := newWatcher(opts...)
	if w.pollInterval <= 0 {
		w.pollInterval = 2 * time.Second
	}
	w.fsys = fsys
	return w
}

func newWatcher(opts ...Option) *Watcher {
	w := &Watcher{
		debounce:   250 * time.Millisecond,
		log:        slog.Default(),
		debouncers: make(map[string]*debouncer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the watch loop. It is idempotent; the first error, if any,
// is returned to every caller. The loop runs until ctx is canceled or Close
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.startOnce.Do(func() {
		if w.osRoot == "" && w.pollInterval <= 0 {
			w.startErr = errors.New("fsentity: no watch mechanism: need an OS root or a poll interval")
			return
		}
		runCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		if w.osRoot != "" {
			go w.runFsnotify(runCtx)
		} else {
			go w.runPoller(runCtx)
		}
	})
	return w.startErr
}

// Close stops the watch loop and closes the change signal. Registered
// handlers stay registered.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.changed.Close()
	return nil
}

// ChangeSignal returns a channel that ticks whenever any event fires,
// coalescing bursts. Useful for select-loop consumers that re-scan rather
// than track individual events.
func (w *Watcher) ChangeSignal() <-chan struct{} {
	return w.changed.Subscriber()
}

// Files lists the currently visible files as sorted slash-separated relative
// paths.
func (w *Watcher) Files(ctx context.Context) ([]string, error) {
	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(snap))
	for p := range snap {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (w *Watcher) emit(event, path string) {
	w.Trigger(event, path)
	_ = w.changed.Notify(context.Background())
}

// markChanged routes a change through the per-path debouncer so bursts of
// writes collapse into one event.
func (w *Watcher) markChanged(path string) {
	w.mu.Lock()
	db, ok := w.debouncers[path]
	if !ok {
		db = &debouncer{interval: w.debounce, fire: func() { w.emit(EventChange, path) }}
		w.debouncers[path] = db
	}
	w.mu.Unlock()
	db.trigger()
}

func (w *Watcher) runPoller(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	defer w.running.Store(false)

	lastSnap, _ := w.snapshot(ctx)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			curSnap, err := w.snapshot(ctx)
			if err != nil {
				continue
			}
			for p, cur := range curSnap {
				prev, ok := lastSnap[p]
				if !ok {
					w.emit(EventAdd, p)
					continue
				}
				if !prev.eq(cur) {
					w.markChanged(p)
				}
			}
			for p := range lastSnap {
				if _, ok := curSnap[p]; !ok {
					w.emit(EventRemove, p)
				}
			}
			lastSnap = curSnap
		}
	}
}

// runFsnotify watches the OS directory tree rooted at osRoot, maintaining
// watches on directories as they appear. Falls back to polling when fsnotify
// cannot start and a poll interval is configured.
func (w *Watcher) runFsnotify(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Debug("fsnotify unavailable", evlog.Err(err))
		w.running.Store(false)
		if w.pollInterval > 0 {
			go w.runPoller(ctx)
		}
		return
	}
	defer w.running.Store(false)
	defer func() {
		// Best-effort watcher close; no actionable error handling path.
		_ = fw.Close()
	}()

	addDirs := func() error {
		return filepath.WalkDir(w.osRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			return fw.Add(p)
		})
	}
	if err := addDirs(); err != nil {
		w.log.Debug("fsnotify add dirs failed", evlog.Err(err))
	}

	// One coalesced tick so subscribers normalize initial state.
	_ = w.changed.Notify(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			rel, ok := w.relPath(ev.Name)
			if !ok {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					// Watch the new directory; its files arrive as
					// their own Create events.
					_ = fw.Add(ev.Name)
					continue
				}
				w.emit(EventAdd, rel)
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// Watches on removed directories are auto-removed.
				w.emit(EventRemove, rel)
			}
			if ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0 {
				w.markChanged(rel)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Debug("fsnotify error", evlog.Err(err))
		}
	}
}

// relPath converts an absolute fsnotify path to a slash-separated path
// relative to the root, rejecting anything that escapes it.
func (w *Watcher) relPath(name string) (string, bool) {
	abs := name
	if a, err := filepath.Abs(name); err == nil {
		abs = a
	}
	if !within(abs, w.osRoot) {
		return "", false
	}
	rel, err := filepath.Rel(w.osRoot, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// snapshot returns path -> file metadata for all visible files.
func (w *Watcher) snapshot(ctx context.Context) (map[string]fileMeta, error) {
	if w.fsys == nil {
		return nil, errors.New("fsentity: no filesystem configured")
	}
	rows := make(map[string]fileMeta)
	err := fs.WalkDir(w.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable nodes
		}
		if d.IsDir() || isSymlink(d) || !validFSPath(p) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var meta fileMeta
		if info, e := d.Info(); e == nil {
			meta = fileMeta{size: info.Size(), mod: info.ModTime()}
		}
		rows[p] = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type fileMeta struct {
	size int64
	mod  time.Time
}

func (a fileMeta) eq(b fileMeta) bool { return a.size == b.size && a.mod.Equal(b.mod) }

func isSymlink(d fs.DirEntry) bool {
	if d == nil {
		return false
	}
	if d.Type()&fs.ModeSymlink != 0 {
		return true
	}
	if info, err := d.Info(); err == nil {
		return info.Mode()&fs.ModeSymlink != 0
	}
	return false
}

func validFSPath(p string) bool {
	if !fs.ValidPath(p) {
		return false
	}
	// Reject Windows volume roots and scheme-looking segments.
	return !strings.Contains(p, ":")
}

// within reports whether target is root or one of its descendants.
func within(target, root string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || strings.HasPrefix(rel, "../") {
		return false
	}
	return true
}

type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	pending  bool
	interval time.Duration
	fire     func()
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.interval <= 0 {
		d.fire()
		return
	}
	if d.pending {
		return
	}
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.flush)
	} else {
		d.timer.Reset(d.interval)
	}
}

func (d *debouncer) flush() {
	d.mu.Lock()
	d.pending = false
	d.mu.Unlock()
	d.fire()
}
