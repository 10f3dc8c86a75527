package localfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"normal", false},
		{"/path/to/.hidden", true},
		{"/path/to/visible.txt", false},
		{"../.hidden", true},
		{"../visible.txt", false},
		{"..", false}, // Special case: parent dir reference
		{".", false},  // Special case: current dir reference
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := IsHidden(tt.path)
			if result != tt.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestIsHiddenName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{".hidden", true},
		{".DS_Store", true},
		{"visible.txt", false},
		{"..", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsHiddenName(tt.name)
			if result != tt.expected {
				t.Errorf("IsHiddenName(%q) = %v, want %v", tt.name, result, tt.expected)
			}
		})
	}
}

// makeDocumentFolder creates:
//
//	description.txt
//	b.pdf
//	a.pdf
//	.hidden
//	scratch.tmp
//	subdir/
//	  nested.pdf
func makeDocumentFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{"description.txt", "b.pdf", "a.pdf", ".hidden", "scratch.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "subdir", "nested.pdf"), []byte("n"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func names(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListDirectory(t *testing.T) {
	dir := makeDocumentFolder(t)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{
			name: "include hidden",
			opts: ListOptions{IncludeHidden: true},
			want: []string{".hidden", "a.pdf", "b.pdf", "description.txt", "scratch.tmp", "subdir"},
		},
		{
			name: "exclude hidden",
			opts: ListOptions{},
			want: []string{"a.pdf", "b.pdf", "description.txt", "scratch.tmp", "subdir"},
		},
		{
			name: "exclude patterns",
			opts: ListOptions{IncludeHidden: true, Exclude: []string{"*.tmp", ".*"}},
			want: []string{"a.pdf", "b.pdf", "description.txt", "subdir"},
		},
		{
			name: "brace pattern",
			opts: ListOptions{Exclude: []string{"{a,b}.pdf"}},
			want: []string{"description.txt", "scratch.tmp", "subdir"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ListDirectory(dir, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(entries); !equalNames(got, tt.want) {
				t.Errorf("ListDirectory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListDirectory_NotRecursive(t *testing.T) {
	dir := makeDocumentFolder(t)

	entries, err := ListDirectory(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name == "nested.pdf" {
			t.Error("ListDirectory descended into a subdirectory")
		}
	}
}

func TestListDirectory_EntryProperties(t *testing.T) {
	dir := makeDocumentFolder(t)

	entries, err := ListDirectory(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		expectedPath := filepath.Join(dir, e.Name)
		if e.Path != expectedPath {
			t.Errorf("entry %q has Path=%q, want %q", e.Name, e.Path, expectedPath)
		}
		if e.Name == "subdir" {
			if !e.IsDir {
				t.Errorf("entry %q should be a directory", e.Name)
			}
			if e.Size != 0 {
				t.Errorf("directory %q has Size=%d, want 0", e.Name, e.Size)
			}
			continue
		}
		if e.IsDir {
			t.Errorf("entry %q should not be a directory", e.Name)
		}
		if e.Size != 4 {
			t.Errorf("entry %q has Size=%d, want 4", e.Name, e.Size)
		}
	}
}

func TestListDirectory_Errors(t *testing.T) {
	t.Run("nonexistent directory", func(t *testing.T) {
		_, err := ListDirectory(filepath.Join(t.TempDir(), "missing"), ListOptions{})
		if err == nil {
			t.Error("expected error for nonexistent directory")
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := ListDirectory(t.TempDir(), ListOptions{Exclude: []string{"[abc"}})
		if err == nil {
			t.Error("expected error for malformed exclude pattern")
		}
	})
}

func TestListDirectory_Symlinks(t *testing.T) {
	targets := t.TempDir()
	payload := filepath.Join(targets, "payload.pdf")
	if err := os.WriteFile(payload, make([]byte, 5000), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(targets, "folder"), 0755); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	links := map[string]string{
		"a.pdf":   payload,
		"linkdir": filepath.Join(targets, "folder"),
		"broken":  filepath.Join(targets, "missing"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(dir, name)); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
	}

	entries, err := ListDirectory(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]FileEntry)
	for _, e := range entries {
		byName[e.Name] = e
	}

	tests := []struct {
		name    string
		isDir   bool
		size    int64
		symlink bool
	}{
		{"a.pdf", false, 5000, false},
		{"linkdir", true, 0, false},
		{"broken", false, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := byName[tt.name]
			if !ok {
				t.Fatalf("entry %q missing", tt.name)
			}
			if e.IsDir != tt.isDir {
				t.Errorf("IsDir = %v, want %v", e.IsDir, tt.isDir)
			}
			if tt.size >= 0 && e.Size != tt.size {
				t.Errorf("Size = %d, want %d", e.Size, tt.size)
			}
			if got := e.Mode&os.ModeSymlink != 0; got != tt.symlink {
				t.Errorf("symlink mode = %v, want %v", got, tt.symlink)
			}
		})
	}
}
