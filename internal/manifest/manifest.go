// Package manifest persists what armature has generated into a project so
// later invocations stay consistent with earlier ones.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/armature-dev/armature/internal/compose"
	"github.com/armature-dev/armature/internal/resource"
)

const manifestDir = ".armature"
const manifestFile = "manifest.json"

// Manifest is the persistent record of an armature-managed project.
type Manifest struct {
	ProjectName string                          `json:"project_name"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
	Resources   map[string]*resource.Descriptor `json:"resources,omitempty"`
	Index       *compose.Index                  `json:"index"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// New creates a manifest for a fresh project under root and persists it.
func New(root, projectName string) (*Manifest, error) {
	dir := filepath.Join(root, manifestDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}

	m := &Manifest{
		ProjectName: projectName,
		CreatedAt:   time.Now(),
		Resources:   make(map[string]*resource.Descriptor),
		Index:       compose.NewIndex(),
		path:        filepath.Join(dir, manifestFile),
	}

	if err := m.Save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads an existing manifest from the project under root.
func Load(root string) (*Manifest, error) {
	path := filepath.Join(root, manifestDir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Resources == nil {
		m.Resources = make(map[string]*resource.Descriptor)
	}
	if m.Index == nil {
		m.Index = compose.NewIndex()
	}
	m.path = path
	return &m, nil
}

// Exists checks whether root holds an armature manifest.
func Exists(root string) bool {
	_, err := os.Stat(filepath.Join(root, manifestDir, manifestFile))
	return err == nil
}

// Save persists the manifest to disk.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(m.path, data, 0644)
}

// AddResource records a generated resource and saves.
func (m *Manifest) AddResource(desc *resource.Descriptor) error {
	m.mu.Lock()
	m.Resources[desc.Name] = desc
	m.mu.Unlock()
	return m.Save()
}

// Resource returns the recorded descriptor for a resource name.
func (m *Manifest) Resource(name string) (*resource.Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.Resources[name]
	return d, ok
}

// ResourceNames returns the recorded resource names in sorted order.
func (m *Manifest) ResourceNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.Resources))
	for name := range m.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
