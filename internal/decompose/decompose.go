// Package decompose turns a free-form feature request into a
// dependency-respecting plan of specialist tasks.
package decompose

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/armature-dev/armature/internal/catalog"
	"github.com/armature-dev/armature/internal/naming"
	"github.com/armature-dev/armature/internal/task"
)

// Plan is the result of decomposing one feature request.
type Plan struct {
	ID        string      `json:"id"`
	Request   string      `json:"request"`
	Subject   string      `json:"subject"`
	CreatedAt time.Time   `json:"created_at"`
	Graph     *task.Graph `json:"-"`
	Order     []string    `json:"order"` // topological execution order
	Waves     []task.Wave `json:"waves"`
}

// stopwords are request words that never identify the subject resource.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "for": true, "of": true,
	"and": true, "with": true, "add": true, "create": true, "build": true,
	"implement": true, "scaffold": true, "new": true, "support": true,
	"feature": true, "please": true, "we": true, "need": true, "want": true,
}

// Decompose converts a request into a task DAG. Domain selection is the
// minimal set implied by the request: domains whose vocabulary matches, plus
// the providers of everything they require; when nothing matches, the
// catalog's core domains. Dependency edges follow data flow (a domain
// requiring an artifact depends on the domain providing it), and tasks
// sharing a wave are marked parallelizable. A cycle in the resulting graph
// is a catalog bug and surfaces as *task.CyclicPlanError.
func Decompose(request string, cat *catalog.Catalog) (*Plan, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return nil, fmt.Errorf("empty feature request")
	}

	words := requestWords(request)
	subject := subjectOf(words)

	selected := matchDomains(words, cat)
	if len(selected) == 0 {
		for _, d := range cat.Domains {
			if d.Core {
				selected = append(selected, d)
			}
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no domain in the catalog applies to %q", request)
	}
	selected = withProviders(selected, cat)

	nodes := make([]*task.Node, 0, len(selected))
	byName := make(map[string]bool, len(selected))
	for _, d := range selected {
		byName[d.Name] = true
	}
	for _, d := range selected {
		n := &task.Node{
			ID:            d.Name + "-" + subject,
			Description:   describe(d.TaskFormat, "Handle the %s work for the "+d.Name+" domain", subject),
			DomainTag:     d.Name,
			DoneCriterion: describe(d.DoneFormat, "the "+d.Name+" output for %s is complete", subject),
		}
		for _, req := range d.Requires {
			for _, p := range cat.Providers(req) {
				if byName[p.Name] && p.Name != d.Name {
					n.DependsOn = append(n.DependsOn, p.Name+"-"+subject)
				}
			}
		}
		sort.Strings(n.DependsOn)
		nodes = append(nodes, n)
	}

	g, err := task.Build(nodes)
	if err != nil {
		return nil, err
	}
	order, err := task.TopoSort(g)
	if err != nil {
		return nil, err
	}
	waves, err := task.Waves(g)
	if err != nil {
		return nil, err
	}

	return &Plan{
		ID:        "plan-" + uuid.NewString()[:8],
		Request:   request,
		Subject:   subject,
		CreatedAt: time.Now(),
		Graph:     g,
		Order:     order,
		Waves:     waves,
	}, nil
}

// requestWords lowercases and splits a request into bare words.
func requestWords(request string) []string {
	fields := strings.FieldsFunc(strings.ToLower(request), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

// subjectOf picks the resource the request is about: the first non-stopword,
// singularized. Falls back to "feature".
func subjectOf(words []string) string {
	for _, w := range words {
		if stopwords[w] {
			continue
		}
		if f, err := naming.ForResource(naming.Singularize(w)); err == nil {
			return f.Kebab
		}
	}
	return "feature"
}

// matchDomains returns the domains whose vocabulary overlaps the request,
// in catalog order.
func matchDomains(words []string, cat *catalog.Catalog) []catalog.Domain {
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	var out []catalog.Domain
	for _, d := range cat.Domains {
		for _, v := range d.Vocabulary {
			if wordSet[v] {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// withProviders extends the selection with the providers of every required
// artifact, transitively, keeping catalog order.
func withProviders(selected []catalog.Domain, cat *catalog.Catalog) []catalog.Domain {
	have := make(map[string]bool, len(selected))
	for _, d := range selected {
		have[d.Name] = true
	}

	queue := append([]catalog.Domain{}, selected...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, req := range d.Requires {
			for _, p := range cat.Providers(req) {
				if !have[p.Name] {
					have[p.Name] = true
					queue = append(queue, p)
				}
			}
		}
	}

	var out []catalog.Domain
	for _, d := range cat.Domains {
		if have[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

func describe(format, fallback, subject string) string {
	if format == "" {
		format = fallback
	}
	return fmt.Sprintf(format, subject)
}
