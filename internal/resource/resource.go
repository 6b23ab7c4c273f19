// Package resource defines the descriptor for a scaffolded domain entity:
// its name, fields and relations to other resources.
package resource

import (
	"fmt"
	"strings"

	"github.com/armature-dev/armature/internal/naming"
)

// SemanticType is the storage-agnostic type of a field.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeText     SemanticType = "text"
	TypeInt      SemanticType = "int"
	TypeFloat    SemanticType = "float"
	TypeBoolean  SemanticType = "boolean"
	TypeDateTime SemanticType = "datetime"
	TypeJSON     SemanticType = "json"
)

// Field is one column/property of a resource.
type Field struct {
	Name     string       `json:"name"`
	Type     SemanticType `json:"type"`
	Nullable bool         `json:"nullable,omitempty"`
	Unique   bool         `json:"unique,omitempty"`
}

// Cardinality describes how a relation joins two resources.
type Cardinality string

const (
	OneToOne   Cardinality = "one-to-one"
	OneToMany  Cardinality = "one-to-many"
	ManyToOne  Cardinality = "many-to-one"
	ManyToMany Cardinality = "many-to-many"
)

// Relation links a resource to another resource.
type Relation struct {
	Target      string      `json:"target"`
	Cardinality Cardinality `json:"cardinality"`
}

// Descriptor is the full description of one resource. Name is the canonical
// singular identifier; all naming variants are derived from it.
type Descriptor struct {
	Name      string     `json:"name"`
	Fields    []Field    `json:"fields,omitempty"`
	Relations []Relation `json:"relations,omitempty"`
}

// Forms returns the naming forms for the descriptor's name.
func (d *Descriptor) Forms() (naming.Forms, error) {
	return naming.ForResource(d.Name)
}

// Validate checks that the descriptor is well formed: the name and every
// field and relation target must survive the naming transform.
func (d *Descriptor) Validate() error {
	if _, err := naming.ForResource(d.Name); err != nil {
		return err
	}
	for _, f := range d.Fields {
		if _, err := naming.ForResource(f.Name); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		switch f.Type {
		case TypeString, TypeText, TypeInt, TypeFloat, TypeBoolean, TypeDateTime, TypeJSON:
		default:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
	}
	for _, r := range d.Relations {
		if _, err := naming.ForResource(r.Target); err != nil {
			return fmt.Errorf("relation target %q: %w", r.Target, err)
		}
		switch r.Cardinality {
		case OneToOne, OneToMany, ManyToOne, ManyToMany:
		default:
			return fmt.Errorf("relation %q: unknown cardinality %q", r.Target, r.Cardinality)
		}
	}
	return nil
}

// ParseField parses a CLI field spec of the form name:type with optional
// trailing markers: "?" for nullable, "!" for unique.
// Examples: "title:string", "email:string!", "bio:text?".
func ParseField(spec string) (Field, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Field{}, fmt.Errorf("field spec %q: want name:type", spec)
	}

	f := Field{Name: parts[0]}
	typ := parts[1]
	for {
		switch {
		case strings.HasSuffix(typ, "?"):
			f.Nullable = true
			typ = strings.TrimSuffix(typ, "?")
		case strings.HasSuffix(typ, "!"):
			f.Unique = true
			typ = strings.TrimSuffix(typ, "!")
		default:
			f.Type = SemanticType(strings.ToLower(typ))
			return f, nil
		}
	}
}

// ParseRelation parses a CLI relation spec of the form target:cardinality,
// e.g. "user:many-to-one". The cardinality defaults to many-to-one when
// omitted.
func ParseRelation(spec string) (Relation, error) {
	parts := strings.SplitN(spec, ":", 2)
	r := Relation{Target: parts[0], Cardinality: ManyToOne}
	if r.Target == "" {
		return Relation{}, fmt.Errorf("relation spec %q: empty target", spec)
	}
	if len(parts) == 2 {
		r.Cardinality = Cardinality(parts[1])
	}
	switch r.Cardinality {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return r, nil
	default:
		return Relation{}, fmt.Errorf("relation spec %q: unknown cardinality %q", spec, r.Cardinality)
	}
}
