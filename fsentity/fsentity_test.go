package fsentity

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/tautline/rigging-go"
	"github.com/tautline/rigging-go/internal/evlog"
)

func newPollWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	w := NewFS(os.DirFS(dir),
		WithPollInterval(25*time.Millisecond),
		WithDebounce(0),
		WithLogger(evlog.Discard()),
	)
	t.Cleanup(func() { w.Close() })
	return w
}

func waitEvent(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("Expected event for %s, got %s", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for event for %s", want)
	}
}

func TestWatcher_PollerEvents(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	w := newPollWatcher(t, dir)

	added := make(chan string, 8)
	changed := make(chan string, 8)
	removed := make(chan string, 8)
	w.On(EventAdd, func(args ...any) { added <- args[0].(string) })
	w.On(EventChange, func(args ...any) { changed <- args[0].(string) })
	w.On(EventRemove, func(args ...any) { removed <- args[0].(string) })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	// Let the initial snapshot settle so pre-existing files stay silent.
	time.Sleep(150 * time.Millisecond)

	select {
	case p := <-added:
		t.Fatalf("Expected no events for pre-existing files, got add %s", p)
	default:
	}

	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("two"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	waitEvent(t, added, "b.txt")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one, longer"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite file: %v", err)
	}
	waitEvent(t, changed, "a.txt")

	if err := os.Remove(filepath.Join(dir, "b.txt")); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	waitEvent(t, removed, "b.txt")
}

func TestWatcher_Subdirectories(t *testing.T) {
	dir := t.TempDir()
	w := newPollWatcher(t, dir)

	added := make(chan string, 8)
	w.On(EventAdd, func(args ...any) { added <- args[0].(string) })

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := os.MkdirAll(filepath.Join(dir, "nested", "deep"), 0o755); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "deep", "c.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	waitEvent(t, added, "nested/deep/c.txt")
}

func TestWatcher_ChangeSignal(t *testing.T) {
	dir := t.TempDir()
	w := newPollWatcher(t, dir)
	tick := w.ChangeSignal()

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "x.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	select {
	case <-tick:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a change signal tick")
	}

	w.Close()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-tick:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Expected the signal channel to close")
		}
	}
}

type indexer struct {
	rigging.Emitter
	mu      sync.Mutex
	indexed []string
	dropped []string
}

func (ix *indexer) Reindex(args ...any) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexed = append(ix.indexed, args[0].(string))
}

func (ix *indexer) Drop(args ...any) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.dropped = append(ix.dropped, args[0].(string))
}

func (ix *indexer) snapshot() ([]string, []string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return slices.Clone(ix.indexed), slices.Clone(ix.dropped)
}

func TestWatcher_AsEntity(t *testing.T) {
	dir := t.TempDir()
	w := newPollWatcher(t, dir)

	ix := &indexer{}
	err := rigging.BindEntityEvents(ix, w, rigging.Bindings{
		"add change": "Reindex",
		"remove":     "Drop",
	})
	if err != nil {
		t.Fatalf("Failed to bind entity events: %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	waitCond(t, func() bool {
		indexed, _ := ix.snapshot()
		return slices.Contains(indexed, "doc.md")
	}, "doc.md to be indexed")

	if err := os.Remove(filepath.Join(dir, "doc.md")); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	waitCond(t, func() bool {
		_, dropped := ix.snapshot()
		return slices.Contains(dropped, "doc.md")
	}, "doc.md to be dropped")
}

func waitCond(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestWatcher_Files(t *testing.T) {
	fsys := fstest.MapFS{
		"readme.md":        {Data: []byte("r")},
		"docs/guide.md":    {Data: []byte("g")},
		"docs/extra/x.txt": {Data: []byte("x")},
		"link":             {Mode: os.ModeSymlink},
	}
	w := NewFS(fsys)
	defer w.Close()

	files, err := w.Files(context.Background())
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	want := []string{"docs/extra/x.txt", "docs/guide.md", "readme.md"}
	if !slices.Equal(files, want) {
		t.Fatalf("Expected %v, got %v", want, files)
	}
}

func TestWatcher_StartWithoutMechanism(t *testing.T) {
	w := newWatcher()
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Expected an error without an OS root or poll interval")
	}
	// Idempotent: the same error on every call.
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Expected the start error to stick")
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	var mu sync.Mutex
	fired := 0
	db := &debouncer{interval: 30 * time.Millisecond, fire: func() {
		mu.Lock()
		fired++
		mu.Unlock()
	}}

	for i := 0; i < 5; i++ {
		db.trigger()
	}
	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 1 {
		t.Fatalf("Expected a burst to coalesce into one fire, got %d", got)
	}

	db.trigger()
	time.Sleep(120 * time.Millisecond)
	mu.Lock()
	got = fired
	mu.Unlock()
	if got != 2 {
		t.Fatalf("Expected a later trigger to fire again, got %d", got)
	}
}

func TestDebouncer_ZeroInterval(t *testing.T) {
	fired := 0
	db := &debouncer{fire: func() { fired++ }}
	db.trigger()
	db.trigger()
	if fired != 2 {
		t.Fatalf("Expected immediate fires without an interval, got %d", fired)
	}
}

func TestRelPath(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	w := New(dir)
	defer w.Close()

	rel, ok := w.relPath(filepath.Join(dir, "sub", "file.txt"))
	if !ok || rel != "sub/file.txt" {
		t.Fatalf("Expected sub/file.txt, got %q ok=%v", rel, ok)
	}
	if _, ok := w.relPath(filepath.Join(dir, "..", "escape.txt")); ok {
		t.Fatal("Expected paths outside the root to be rejected")
	}
}
