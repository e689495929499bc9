package paths

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", f, err)
		}
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "subdir/test.go")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"existing file", filepath.Join(root, "subdir", "test.go"), "subdir/test.go"},
		{"missing file", filepath.Join(root, "gone", "old.go"), "gone/old.go"},
		{"root itself", root, "."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.path, root)
			if err != nil {
				t.Fatalf("CanonicalizePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizePath_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	real := t.TempDir()
	writeTree(t, real, "src/app.js")
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	got, err := CanonicalizePath(filepath.Join(real, "src", "app.js"), link)
	if err != nil {
		t.Fatalf("CanonicalizePath() error = %v", err)
	}
	if got != "src/app.js" {
		t.Errorf("CanonicalizePath() = %q, want src/app.js", got)
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(filepath.Join("path", "to", "file")); got != "path/to/file" {
		t.Errorf("NormalizePath() = %q", got)
	}
}

func TestJoinRepoPath(t *testing.T) {
	want := filepath.Join("/repo/root", "path", "to", "file.go")
	for _, rel := range []string{"path/to/file.go", `path\to\file.go`} {
		if got := JoinRepoPath("/repo/root", rel); got != want {
			t.Errorf("JoinRepoPath(%q) = %q, want %q", rel, got, want)
		}
	}
}

func TestIsWithinRepo(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "repo")
	writeTree(t, root, "subdir/test.go", "..hidden/y.go")
	writeTree(t, parent, "repo-other/x.go")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"file inside", filepath.Join(root, "subdir", "test.go"), true},
		{"missing file inside", filepath.Join(root, "new.go"), true},
		{"root itself", root, true},
		{"dotdot-named dir inside", filepath.Join(root, "..hidden", "y.go"), true},
		{"parent", parent, false},
		{"sibling with shared prefix", filepath.Join(parent, "repo-other", "x.go"), false},
		{"escaping relative segments", filepath.Join(root, "..", "repo-other", "x.go"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinRepo(tt.path, root); got != tt.want {
				t.Errorf("IsWithinRepo(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		path string
		uri  string
	}{
		{"/Users/dev/app/main.go", "file:///Users/dev/app/main.go"},
		{"/srv/my app/x.js", "file:///srv/my%20app/x.js"},
	}
	for _, tt := range tests {
		if got := FileURI(tt.path); got != tt.uri {
			t.Errorf("FileURI(%q) = %q, want %q", tt.path, got, tt.uri)
		}
		back, err := PathFromURI(tt.uri)
		if err != nil {
			t.Fatalf("PathFromURI(%q) failed: %v", tt.uri, err)
		}
		if back != tt.path {
			t.Errorf("PathFromURI(%q) = %q, want %q", tt.uri, back, tt.path)
		}
	}

	plain, err := PathFromURI("/tmp/../tmp/a.go")
	if err != nil || plain != "/tmp/a.go" {
		t.Errorf("expected plain path to be cleaned, got %q %v", plain, err)
	}
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"src/app.js",
		"src/lib/util.js",
		"node_modules/dep/index.js",
		".git/HEAD",
		"README.md",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListFiles(context.Background(), root, []string{".git", "node_modules"})
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(root, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)
	want := []string{"README.md", "src/app.js", "src/lib/util.js"}
	if len(rel) != len(want) {
		t.Fatalf("expected %v, got %v", want, rel)
	}
	for i := range want {
		if rel[i] != want[i] {
			t.Errorf("expected %s, got %s", want[i], rel[i])
		}
	}
}

func TestListFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ListFiles(ctx, t.TempDir(), nil); err == nil {
		t.Error("expected cancelled context to stop the walk")
	}
}
