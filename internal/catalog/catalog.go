// Package catalog declares the specialist domains known to the planner:
// their vocabularies for keyword routing and the data-flow contracts
// (provides/requires) dependency inference is built on.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Domain describes one specialist area.
type Domain struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Vocabulary  []string `yaml:"vocabulary" json:"vocabulary"`
	Provides    []string `yaml:"provides,omitempty" json:"provides,omitempty"`
	Requires    []string `yaml:"requires,omitempty" json:"requires,omitempty"`
	// Core domains take part in every feature scaffold; non-core domains
	// join a plan only when the request matches their vocabulary.
	Core bool `yaml:"core,omitempty" json:"core,omitempty"`
	// TaskFormat and DoneFormat are fmt strings over the request subject.
	TaskFormat string `yaml:"task_format,omitempty" json:"task_format,omitempty"`
	DoneFormat string `yaml:"done_format,omitempty" json:"done_format,omitempty"`
}

// Catalog is the full set of domains plus the generalist fallback owner.
type Catalog struct {
	Domains    []Domain `yaml:"domains" json:"domains"`
	Generalist string   `yaml:"generalist,omitempty" json:"generalist,omitempty"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Generalist: "orchestrator",
		Domains: []Domain{
			{
				Name:        "schema",
				Description: "data modeling and persistence",
				Vocabulary:  []string{"schema", "model", "database", "migration", "table", "column", "field", "persistence", "prisma", "relation"},
				Provides:    []string{"model"},
				Core:        true,
				TaskFormat:  "Define the %s data model and persistence schema",
				DoneFormat:  "%s schema fragment composes into prisma/schema.prisma",
			},
			{
				Name:        "types",
				Description: "shared type and contract definitions",
				Vocabulary:  []string{"type", "types", "interface", "typing", "typescript", "dto", "contract"},
				Provides:    []string{"types"},
				Requires:    []string{"model"},
				Core:        true,
				TaskFormat:  "Derive the %s types and validation contracts",
				DoneFormat:  "%s validation schemas reference the generated model types",
			},
			{
				Name:        "api",
				Description: "routing, controllers and services",
				Vocabulary:  []string{"api", "route", "endpoint", "controller", "service", "rest", "crud", "handler", "request", "response"},
				Provides:    []string{"endpoints"},
				Requires:    []string{"model"},
				Core:        true,
				TaskFormat:  "Scaffold the %s routes, controller and service",
				DoneFormat:  "%s routes are registered in the route index",
			},
			{
				Name:        "infra",
				Description: "middleware and cross-cutting concerns",
				Vocabulary:  []string{"middleware", "auth", "authentication", "logging", "rate", "limit", "config", "infra"},
				Provides:    []string{"middleware"},
				TaskFormat:  "Add the %s middleware and wiring",
				DoneFormat:  "%s middleware artifact is present under src/middleware",
			},
			{
				Name:        "review",
				Description: "cross-domain review of generated artifacts",
				Vocabulary:  []string{"review", "audit", "lint", "quality", "security", "consistency"},
				TaskFormat:  "Review the %s artifacts across domains",
				DoneFormat:  "review findings for %s are aggregated into one report",
			},
		},
	}
}

// Find returns the domain with the given name.
func (c *Catalog) Find(name string) (*Domain, bool) {
	for i := range c.Domains {
		if c.Domains[i].Name == name {
			return &c.Domains[i], true
		}
	}
	return nil, false
}

// Providers returns the domains that provide the given artifact kind.
func (c *Catalog) Providers(artifact string) []Domain {
	var out []Domain
	for _, d := range c.Domains {
		for _, p := range d.Provides {
			if p == artifact {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Load reads a catalog from a YAML file, falling back to Default when the
// file does not exist.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(c.Domains) == 0 {
		return nil, fmt.Errorf("catalog %s declares no domains", path)
	}
	if c.Generalist == "" {
		c.Generalist = "orchestrator"
	}
	return &c, nil
}
