package scaffold

import (
	"fmt"
	"strings"
)

// Capability is one CRUD-style operation selectable per resource.
type Capability string

const (
	CapList    Capability = "list"
	CapGetByID Capability = "getById"
	CapCreate  Capability = "create"
	CapUpdate  Capability = "update"
	CapDelete  Capability = "delete"
)

// AllCapabilities is the full capability set in canonical order.
var AllCapabilities = []Capability{CapList, CapGetByID, CapCreate, CapUpdate, CapDelete}

// ParseCapability normalizes a user-supplied capability name.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "list", "index":
		return CapList, nil
	case "getbyid", "get", "show", "read":
		return CapGetByID, nil
	case "create", "post":
		return CapCreate, nil
	case "update", "put", "patch":
		return CapUpdate, nil
	case "delete", "destroy", "remove":
		return CapDelete, nil
	default:
		return "", fmt.Errorf("unknown capability %q (want one of list, getById, create, update, delete)", s)
	}
}

// ParseCapabilities parses a list of capability names, preserving order and
// dropping duplicates. An empty input means the full set.
func ParseCapabilities(names []string) ([]Capability, error) {
	if len(names) == 0 {
		return append([]Capability{}, AllCapabilities...), nil
	}
	seen := map[Capability]bool{}
	var caps []Capability
	for _, n := range names {
		c, err := ParseCapability(n)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			caps = append(caps, c)
		}
	}
	return caps, nil
}

// needsValidation reports whether any capability requires a validation
// schema fragment.
func needsValidation(caps []Capability) bool {
	for _, c := range caps {
		if c == CapCreate || c == CapUpdate {
			return true
		}
	}
	return false
}
