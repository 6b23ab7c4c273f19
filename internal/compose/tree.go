package compose

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemTree is an in-memory Tree, used by tests and dry runs.
type MemTree struct {
	mu    sync.Mutex
	files map[string]string
}

// NewMemTree creates an empty in-memory tree, optionally seeded with files.
func NewMemTree(seed map[string]string) *MemTree {
	files := make(map[string]string, len(seed))
	for p, c := range seed {
		files[p] = c
	}
	return &MemTree{files: files}
}

func (t *MemTree) Read(path string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.files[path]
	return c, ok, nil
}

func (t *MemTree) Write(path, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = content
	return nil
}

// Paths returns all file paths in sorted order.
func (t *MemTree) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DiskTree is a Tree rooted at a directory on disk. Parent directories are
// created on demand.
type DiskTree struct {
	Root string
}

// NewDiskTree creates a DiskTree rooted at dir.
func NewDiskTree(dir string) *DiskTree {
	if dir == "" {
		dir = "."
	}
	return &DiskTree{Root: dir}
}

func (t *DiskTree) abs(path string) string {
	return filepath.Join(t.Root, filepath.FromSlash(path))
}

func (t *DiskTree) Read(path string) (string, bool, error) {
	data, err := os.ReadFile(t.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (t *DiskTree) Write(path, content string) error {
	full := t.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0644)
}
