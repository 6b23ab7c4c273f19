// Package compose merges generated artifacts into a project tree. It owns
// the only shared mutable resource in the system: writes are serialized per
// path, and concurrent writers to the same path are rejected rather than
// silently merged.
package compose

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/armature-dev/armature/internal/scaffold"
)

// Tree abstracts the project tree the composer mutates.
type Tree interface {
	Read(path string) (content string, ok bool, err error)
	Write(path, content string) error
}

// Index records which chunks have been inserted into which aggregator
// files, keyed by artifact insert key. It is explicit state handed to the
// composer (and persisted in the project manifest), never a package global.
type Index struct {
	Inserted map[string][]string `json:"inserted,omitempty"` // path -> insert keys
}

// NewIndex returns an empty insertion index.
func NewIndex() *Index {
	return &Index{Inserted: make(map[string][]string)}
}

// Has reports whether key was already inserted into path.
func (ix *Index) Has(path, key string) bool {
	for _, k := range ix.Inserted[path] {
		if k == key {
			return true
		}
	}
	return false
}

// Add records an insertion.
func (ix *Index) Add(path, key string) {
	if ix.Inserted == nil {
		ix.Inserted = make(map[string][]string)
	}
	if !ix.Has(path, key) {
		ix.Inserted[path] = append(ix.Inserted[path], key)
		sort.Strings(ix.Inserted[path])
	}
}

// Error is a typed compose failure reporting both artifacts involved.
type Error struct {
	Reason string // "path-conflict" or "concurrent-write"
	Path   string
	First  scaffold.Artifact
	Second scaffold.Artifact
}

func (e *Error) Error() string {
	if e.Reason == "concurrent-write" {
		return fmt.Sprintf("path conflict: concurrent writers on %s", e.Path)
	}
	return fmt.Sprintf("path conflict on %s: %s artifact collides with existing %s artifact",
		e.Path, e.Second.Kind, e.First.Kind)
}

// Composer applies artifacts to a tree. A single Composer instance is shared
// by all tasks in a run; each path gets its own lock.
type Composer struct {
	Tree  Tree
	Index *Index

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	claimed map[string]scaffold.Artifact // path -> first artifact that wrote it
}

// New creates a Composer over a tree with an explicit insertion index.
func New(tree Tree, index *Index) *Composer {
	if index == nil {
		index = NewIndex()
	}
	return &Composer{
		Tree:    tree,
		Index:   index,
		locks:   make(map[string]*sync.Mutex),
		claimed: make(map[string]scaffold.Artifact),
	}
}

// Compose applies artifacts in order and returns the paths it mutated.
// Already-applied writes are kept when a later artifact fails; the error is
// fatal for the current operation only.
func (c *Composer) Compose(artifacts []scaffold.Artifact) ([]string, error) {
	var changed []string
	seen := map[string]bool{}
	for _, a := range artifacts {
		mutated, err := c.Apply(a)
		if err != nil {
			return changed, err
		}
		if mutated && !seen[a.Path] {
			seen[a.Path] = true
			changed = append(changed, a.Path)
		}
	}
	return changed, nil
}

// Apply merges one artifact into the tree. It reports whether the tree was
// mutated: an idempotent insert whose chunk is already present is a no-op.
func (c *Composer) Apply(a scaffold.Artifact) (bool, error) {
	lock := c.pathLock(a.Path)
	if !lock.TryLock() {
		return false, &Error{Reason: "concurrent-write", Path: a.Path, Second: a}
	}
	defer lock.Unlock()

	if err := c.claim(a); err != nil {
		return false, err
	}

	switch a.Merge {
	case scaffold.MergeReplace:
		if err := c.Tree.Write(a.Path, a.Content); err != nil {
			return false, fmt.Errorf("write %s: %w", a.Path, err)
		}
		return true, nil
	case scaffold.MergeInsert:
		return c.insert(a)
	default:
		return false, fmt.Errorf("artifact %s: unknown merge strategy %q", a.Path, a.Merge)
	}
}

// claim enforces that a path is only ever written by artifacts of one kind.
func (c *Composer) claim(a scaffold.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	first, ok := c.claimed[a.Path]
	if !ok {
		c.claimed[a.Path] = a
		return nil
	}
	if first.Kind != a.Kind {
		return &Error{Reason: "path-conflict", Path: a.Path, First: first, Second: a}
	}
	return nil
}

func (c *Composer) pathLock(path string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[path]
	if !ok {
		l = &sync.Mutex{}
		c.locks[path] = l
	}
	return l
}

// insert places the artifact's chunk above its anchor line, at most once.
// Presence is checked against both the index and the file content, so
// composing the same artifact twice mutates the aggregator only once.
func (c *Composer) insert(a scaffold.Artifact) (bool, error) {
	if c.Index.Has(a.Path, a.InsertKey) {
		return false, nil
	}

	content, ok, err := c.Tree.Read(a.Path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", a.Path, err)
	}
	if !ok {
		return false, fmt.Errorf("aggregator %s does not exist (is the project initialized?)", a.Path)
	}

	if strings.Contains(content, a.Content) {
		c.Index.Add(a.Path, a.InsertKey)
		return false, nil
	}

	idx := strings.Index(content, a.Anchor)
	if idx < 0 {
		return false, fmt.Errorf("aggregator %s: anchor %q not found", a.Path, strings.TrimSpace(a.Anchor))
	}

	// Single-line chunks stack directly above the anchor; multi-line chunks
	// keep a blank line before it.
	sep := "\n"
	if strings.Contains(a.Content, "\n") {
		sep = "\n\n"
	}

	updated := content[:idx] + a.Content + sep + content[idx:]
	if err := c.Tree.Write(a.Path, updated); err != nil {
		return false, fmt.Errorf("write %s: %w", a.Path, err)
	}
	c.Index.Add(a.Path, a.InsertKey)
	return true, nil
}
