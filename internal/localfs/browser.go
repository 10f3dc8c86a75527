package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string      // Full path to the file
	Name    string      // Base name of the file
	Size    int64       // Size in bytes (0 for directories)
	IsDir   bool        // True if this is a directory
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // File mode/permissions
}

// ListDirectory returns the entries directly inside path, filtered by opts.
// It does not descend into subdirectories. Entries are sorted by name so
// uploads happen in a stable order on every platform.
func ListDirectory(path string, opts ListOptions) ([]FileEntry, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		if !opts.IncludeHidden && IsHiddenName(name) {
			continue
		}
		if opts.excluded(name) {
			continue
		}

		fullPath := filepath.Join(path, name)
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			// Describe what the link points at; a dangling link keeps its
			// own info and fails when opened.
			if target, err := os.Stat(fullPath); err == nil {
				info = target
			}
		}

		size := info.Size()
		if info.IsDir() {
			size = 0
		}

		result = append(result, FileEntry{
			Path:    fullPath,
			Name:    name,
			Size:    size,
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
