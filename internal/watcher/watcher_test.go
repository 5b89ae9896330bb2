package watcher

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 100 * time.Millisecond

// textOnly accepts .md files and every directory except "skip".
func textOnly(rel string, isDir bool) bool {
	if isDir {
		return path.Base(rel) != "skip"
	}
	return path.Ext(rel) == ".md"
}

func startWatcher(t *testing.T, root string) (*Watcher, *int32) {
	t.Helper()
	var calls int32
	w := NewWatcher(func(ctx context.Context, got string) {
		if got != filepath.Clean(root) {
			t.Errorf("onChange root = %s, want %s", got, root)
		}
		atomic.AddInt32(&calls, 1)
	}, WithDebounce(testDebounce), WithFilter(textOnly))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	return w, &calls
}

func waitCalls(calls *int32, want int32, within time.Duration) int32 {
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(calls) >= want {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	return atomic.LoadInt32(calls)
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_BurstTriggersOnce(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "notes.md"), "draft")
	}
	writeFile(t, filepath.Join(dir, "other.md"), "more")

	if got := waitCalls(calls, 1, 2*time.Second); got != 1 {
		t.Fatalf("expected one change callback, got %d", got)
	}
	time.Sleep(3 * testDebounce)
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("burst should collapse to one callback, got %d", got)
	}
}

func TestWatcher_IgnoresFilteredFiles(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	writeFile(t, filepath.Join(dir, "image.png"), "x")
	time.Sleep(4 * testDebounce)
	if got := atomic.LoadInt32(calls); got != 0 {
		t.Errorf("ineligible file should not trigger, got %d", got)
	}
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if got := waitCalls(calls, 1, 2*time.Second); got != 1 {
		t.Fatalf("new directory should trigger, got %d", got)
	}
	writeFile(t, filepath.Join(sub, "inner.md"), "nested")
	if got := waitCalls(calls, 2, 2*time.Second); got != 2 {
		t.Errorf("file in new directory should trigger, got %d", got)
	}
}

func TestWatcher_ExcludedDirectoryNotWatched(t *testing.T) {
	dir := t.TempDir()
	skip := filepath.Join(dir, "skip")
	if err := os.Mkdir(skip, 0755); err != nil {
		t.Fatal(err)
	}
	w, calls := startWatcher(t, dir)
	for _, p := range w.watched {
		if p == skip {
			t.Fatal("excluded directory should not be watched")
		}
	}
	writeFile(t, filepath.Join(skip, "hidden.md"), "x")
	time.Sleep(4 * testDebounce)
	if got := atomic.LoadInt32(calls); got != 0 {
		t.Errorf("change in excluded directory should not trigger, got %d", got)
	}
}

func TestWatcher_WatchReplacesRoot(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	w, _ := startWatcher(t, first)
	if w.Root() != filepath.Clean(first) {
		t.Fatalf("Root() = %s", w.Root())
	}
	if err := w.Watch(second); err != nil {
		t.Fatal(err)
	}
	if w.Root() != filepath.Clean(second) {
		t.Errorf("Root() = %s, want %s", w.Root(), second)
	}
	if err := w.Watch(""); err != nil {
		t.Fatal(err)
	}
	if w.Root() != "" {
		t.Errorf("Root() after clearing = %s", w.Root())
	}
	if err := w.Watch(filepath.Join(second, "missing")); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestWatcher_WatchBeforeStartIsNoop(t *testing.T) {
	w := NewWatcher(nil)
	if err := w.Watch(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if w.Root() != "" {
		t.Error("unstarted watcher should not record a root")
	}
	w.Stop()
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
		{"/tmp/a", "/tmp/ab", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
