package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_CoreDomains(t *testing.T) {
	c := Default()

	want := []string{"schema", "types", "api", "infra", "review"}
	if len(c.Domains) != len(want) {
		t.Fatalf("expected %d domains, got %d", len(want), len(c.Domains))
	}
	for i, name := range want {
		if c.Domains[i].Name != name {
			t.Errorf("domain %d: expected %q, got %q", i, name, c.Domains[i].Name)
		}
	}

	for _, name := range []string{"schema", "types", "api"} {
		d, ok := c.Find(name)
		if !ok {
			t.Fatalf("Find(%q) failed", name)
		}
		if !d.Core {
			t.Errorf("%s should be core", name)
		}
	}
	for _, name := range []string{"infra", "review"} {
		d, _ := c.Find(name)
		if d.Core {
			t.Errorf("%s should not be core", name)
		}
	}

	if c.Generalist != "orchestrator" {
		t.Errorf("expected generalist 'orchestrator', got %q", c.Generalist)
	}
}

func TestFind_Unknown(t *testing.T) {
	c := Default()
	if _, ok := c.Find("frontend"); ok {
		t.Errorf("Find should fail for an unknown domain")
	}
}

func TestProviders(t *testing.T) {
	c := Default()

	ps := c.Providers("model")
	if len(ps) != 1 || ps[0].Name != "schema" {
		t.Errorf("expected schema to provide 'model', got %v", ps)
	}

	if ps := c.Providers("frontend"); len(ps) != 0 {
		t.Errorf("expected no providers for 'frontend', got %v", ps)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load should fall back on a missing file: %v", err)
	}
	if len(c.Domains) != len(Default().Domains) {
		t.Errorf("fallback catalog differs from Default")
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `domains:
  - name: billing
    vocabulary: [invoice, payment]
    provides: [billing]
    requires: [model]
  - name: schema
    vocabulary: [schema, model]
    provides: [model]
    core: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c.Domains) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(c.Domains))
	}
	if c.Generalist != "orchestrator" {
		t.Errorf("expected default generalist, got %q", c.Generalist)
	}

	b, ok := c.Find("billing")
	if !ok {
		t.Fatalf("Find(billing) failed")
	}
	if len(b.Requires) != 1 || b.Requires[0] != "model" {
		t.Errorf("unexpected requires: %v", b.Requires)
	}
	if ps := c.Providers("model"); len(ps) != 1 || ps[0].Name != "schema" {
		t.Errorf("expected schema as model provider, got %v", ps)
	}
}

func TestLoad_EmptyCatalogRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("generalist: anyone\n"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected an error for a catalog with no domains")
	} else {
		t.Logf("empty catalog rejected (expected): %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("domains: [:::"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected a parse error")
	} else {
		t.Logf("parse error (expected): %v", err)
	}
}
