package documents

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"stackresolve/internal/paths"
)

func TestStore_PutGetClose(t *testing.T) {
	s := NewStore()
	uri := paths.FileURI("/work/shop/app.js")

	if _, ok := s.Get(uri); ok {
		t.Fatal("expected no document before Put")
	}

	doc, err := s.Put(uri, "let a = 1\n", 1)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if doc.URI != uri {
		t.Errorf("URI = %q, want %q", doc.URI, uri)
	}

	got, ok := s.Get(uri)
	if !ok || got.Text != "let a = 1\n" {
		t.Errorf("Get = %+v, %v", got, ok)
	}

	if !s.Close(uri) {
		t.Error("expected Close to report an open buffer")
	}
	if s.Close(uri) {
		t.Error("expected second Close to report nothing open")
	}
}

func TestStore_PlainPathsShareKey(t *testing.T) {
	s := NewStore()
	if _, err := s.Put("/work/shop/app.js", "x", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := s.Get("file:///work/shop/app.js"); !ok {
		t.Error("expected the plain path and its URI to address the same buffer")
	}
}

func TestStore_StaleVersionIgnored(t *testing.T) {
	s := NewStore()
	uri := paths.FileURI("/work/a.rb")

	if _, err := s.Put(uri, "v3", 3); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Put(uri, "v2", 2)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text != "v3" {
		t.Errorf("expected stale update to be ignored, got %q", doc.Text)
	}

	// Unversioned pushes always win.
	if doc, _ := s.Put(uri, "latest", 0); doc.Text != "latest" {
		t.Errorf("expected unversioned update to apply, got %q", doc.Text)
	}
}

func TestStore_EmptyURI(t *testing.T) {
	s := NewStore()
	if _, err := s.Put("", "x", 0); err == nil {
		t.Error("expected error for empty URI")
	}
}

func TestStore_TextFallsBackToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore()
	uri := paths.FileURI(path)

	text, err := s.Text(uri)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if text != "print(1)\n" {
		t.Errorf("Text = %q", text)
	}

	if _, err := s.Put(uri, "print(2)\n", 1); err != nil {
		t.Fatal(err)
	}
	if text, _ := s.Text(uri); text != "print(2)\n" {
		t.Errorf("expected overlay text, got %q", text)
	}

	if _, err := s.Text(paths.FileURI(filepath.Join(dir, "missing.py"))); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStore_List(t *testing.T) {
	s := NewStore()
	for _, p := range []string{"/b.go", "/a.go", "/c.go"} {
		if _, err := s.Put(p, "", 0); err != nil {
			t.Fatal(err)
		}
	}
	docs := s.List()
	if len(docs) != 3 || docs[0].URI != "file:///a.go" || docs[2].URI != "file:///c.go" {
		t.Errorf("List = %+v", docs)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	uri := paths.FileURI("/work/race.js")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Put(uri, "text", i)
			_, _ = s.Text(uri)
			_ = s.List()
		}(i)
	}
	wg.Wait()

	if _, ok := s.Get(uri); !ok {
		t.Error("expected document after concurrent writes")
	}
}
