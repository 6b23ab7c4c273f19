// Package review reconciles the independent findings of every specialist
// over one target into a single deduplicated, severity-ranked report.
package review

import (
	"fmt"
	"sort"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityHigh Severity = "HIGH"
	SeverityMed  Severity = "MED"
	SeverityLow  Severity = "LOW"
)

// rank orders severities for sorting; higher is more severe.
func rank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMed:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is one observation a specialist made about the target.
type Finding struct {
	Domain   string   `json:"domain"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"` // 0 means whole-file
}

// Location renders the finding's position as file or file:line.
func (f Finding) Location() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

// Report is the aggregated result: findings deduplicated on
// (location, message), grouped by domain and sorted by severity then
// location, with per-severity counts.
type Report struct {
	Findings []Finding        `json:"findings"`
	Counts   map[Severity]int `json:"counts"`
	Domains  []string         `json:"domains"` // sorted domain names present
}

// Aggregate merges finding sets from independent specialists. Two findings
// are duplicates iff their (location, message) match exactly; the survivor
// keeps the highest reported severity and the earliest emitter's domain.
// Output ordering is deterministic: domains alphabetically, findings within
// a domain by severity then location, ties kept in original emission order.
func Aggregate(sets [][]Finding) *Report {
	type slot struct {
		finding Finding
		order   int // original emission index, for stable ties
	}

	var slots []*slot
	byKey := map[[2]string]*slot{}
	order := 0
	for _, set := range sets {
		for _, f := range set {
			key := [2]string{f.Location(), f.Message}
			if s, ok := byKey[key]; ok {
				if rank(f.Severity) > rank(s.finding.Severity) {
					s.finding.Severity = f.Severity
				}
				continue
			}
			s := &slot{finding: f, order: order}
			order++
			byKey[key] = s
			slots = append(slots, s)
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.finding.Domain != b.finding.Domain {
			return a.finding.Domain < b.finding.Domain
		}
		if ra, rb := rank(a.finding.Severity), rank(b.finding.Severity); ra != rb {
			return ra > rb
		}
		if la, lb := a.finding.Location(), b.finding.Location(); la != lb {
			return la < lb
		}
		return a.order < b.order
	})

	report := &Report{Counts: make(map[Severity]int)}
	seenDomain := map[string]bool{}
	for _, s := range slots {
		report.Findings = append(report.Findings, s.finding)
		report.Counts[s.finding.Severity]++
		if !seenDomain[s.finding.Domain] {
			seenDomain[s.finding.Domain] = true
			report.Domains = append(report.Domains, s.finding.Domain)
		}
	}
	sort.Strings(report.Domains)
	return report
}

// ByDomain returns the report's findings for one domain, in report order.
func (r *Report) ByDomain(domain string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Domain == domain {
			out = append(out, f)
		}
	}
	return out
}

// Total returns the number of findings in the report.
func (r *Report) Total() int {
	return len(r.Findings)
}
