package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/sitewright/internal/catalog"
)

func template(id string) string {
	return `{"id":"` + id + `","title":"` + id + `","categories":["restaurant"],"content":[]}`
}

func writeTemplate(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_AddRemoveDirectory(t *testing.T) {
	root1 := t.TempDir()
	root2 := t.TempDir()
	cat := catalog.New(nil)

	w := New([]string{root1}, ForCatalog(cat), WithRecursive(true))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(root1) {
		t.Errorf("Directories() = %v, want [%s]", dirs, root1)
	}

	if err := w.AddDirectory(root2, false); err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	if err := w.AddDirectory(root2, false); err != nil {
		t.Fatalf("AddDirectory (duplicate): %v", err)
	}
	if got := len(w.Directories()); got != 2 {
		t.Errorf("after AddDirectory: len(Directories()) = %d, want 2", got)
	}

	if err := w.RemoveDirectory(root2); err != nil {
		t.Fatalf("RemoveDirectory: %v", err)
	}
	dirs = w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(root1) {
		t.Errorf("after RemoveDirectory: Directories() = %v, want [%s]", dirs, root1)
	}
}

func TestWatcher_SyncExisting(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, filepath.Join(root, "a.json"), template("alpha"))
	writeTemplate(t, filepath.Join(root, "broken.json"), `{"id":`)
	writeTemplate(t, filepath.Join(root, "notes.txt"), "ignored")

	cat := catalog.New(nil)
	w := New([]string{root}, ForCatalog(cat))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	w.SyncExisting()
	if cat.Len() != 1 {
		t.Fatalf("Expected 1 template after sync, got %d", cat.Len())
	}
	if id, ok := w.Loaded(filepath.Join(root, "a.json")); !ok || id != "alpha" {
		t.Errorf("Loaded(a.json) = %q, %v", id, ok)
	}
}

func TestWatcher_ReloadAndRemove(t *testing.T) {
	root := t.TempDir()
	cat := catalog.New(nil)
	w := New([]string{root}, ForCatalog(cat), WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(root, "site.json")
	writeTemplate(t, path, template("first"))
	writeTemplate(t, filepath.Join(root, ".site.json.swp"), template("swap"))

	if !waitFor(t, func() bool { _, err := cat.Get("first"); return err == nil }) {
		t.Fatal("template was not loaded after create")
	}

	// Same file now holds another template id: the old one must go.
	writeTemplate(t, path, template("second"))
	if !waitFor(t, func() bool {
		_, errNew := cat.Get("second")
		_, errOld := cat.Get("first")
		return errNew == nil && errOld != nil
	}) {
		t.Fatalf("template was not replaced, catalog has %d entries", cat.Len())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return cat.Len() == 0 }) {
		t.Fatalf("template was not unloaded after remove, catalog has %d entries", cat.Len())
	}
	if _, err := cat.Get("swap"); err == nil {
		t.Error("dot-prefixed files should be ignored")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w := New([]string{t.TempDir()}, ForCatalog(catalog.New(nil)))
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/a/b", "/a/b/c.json", true},
		{"/a/b", "/a/b/c/d.json", true},
		{"/a/b", "/a/bc.json", false},
		{"/a/b", "/a/c.json", false},
		{"/a/b", "/x/y", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
