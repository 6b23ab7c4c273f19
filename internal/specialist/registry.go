// Package specialist implements the domain handler registry and the router
// that assigns every task to exactly one owner.
package specialist

import (
	"context"
	"sort"
	"strings"

	"github.com/armature-dev/armature/internal/catalog"
	"github.com/armature-dev/armature/internal/compose"
	"github.com/armature-dev/armature/internal/resource"
	"github.com/armature-dev/armature/internal/review"
	"github.com/armature-dev/armature/internal/scaffold"
	"github.com/armature-dev/armature/internal/task"
)

// Env is the shared context a handler executes against: the subject
// descriptor, the requested capabilities, the project tree (read-only for
// reviewers) and the names of already-scaffolded resources.
type Env struct {
	Descriptor   *resource.Descriptor
	Capabilities []scaffold.Capability
	Tree         compose.Tree
	Resources    []string // canonical names of resources in the project
}

// Result is a handler's output for one task. Artifacts are handed to the
// composer by the caller; findings feed the review aggregator.
type Result struct {
	TaskID    string              `json:"task_id"`
	Domain    string              `json:"domain"`
	Summary   string              `json:"summary"`
	Artifacts []scaffold.Artifact `json:"artifacts,omitempty"`
	Findings  []review.Finding    `json:"findings,omitempty"`
}

// Handler is one specialist domain. Match scores how strongly the handler's
// vocabulary overlaps a task; Execute performs the task; Review inspects the
// current tree independently of any task.
type Handler interface {
	Domain() string
	Match(n *task.Node) int
	Execute(ctx context.Context, n *task.Node, env *Env) (*Result, error)
	Review(env *Env) []review.Finding
}

// Registry holds the registered handlers in priority order.
type Registry struct {
	handlers   []Handler
	byDomain   map[string]Handler
	generalist string
}

// NewRegistry builds a registry for a catalog: every catalog domain gets its
// specialized handler when one exists, a vocabulary-only handler otherwise,
// and the catalog's generalist becomes the fallback owner.
func NewRegistry(cat *catalog.Catalog) *Registry {
	r := &Registry{byDomain: make(map[string]Handler), generalist: cat.Generalist}
	for _, d := range cat.Domains {
		r.Register(handlerFor(d))
	}
	if _, ok := r.byDomain[cat.Generalist]; !ok {
		r.Register(&generalistHandler{name: cat.Generalist})
	}
	return r
}

// Register adds a handler. Later registrations for the same domain replace
// earlier ones.
func (r *Registry) Register(h Handler) {
	if _, ok := r.byDomain[h.Domain()]; !ok {
		r.handlers = append(r.handlers, h)
	} else {
		for i, existing := range r.handlers {
			if existing.Domain() == h.Domain() {
				r.handlers[i] = h
				break
			}
		}
	}
	r.byDomain[h.Domain()] = h
}

// Lookup returns the handler for a domain.
func (r *Registry) Lookup(domain string) (Handler, bool) {
	h, ok := r.byDomain[domain]
	return h, ok
}

// Handlers returns the registered handlers in registration order.
func (r *Registry) Handlers() []Handler {
	return r.handlers
}

// Route resolves the owner for one task. Matching is priority ordered: an
// explicit domain tag wins; otherwise the best keyword-overlap score; a tie
// splits the task into one subtask per tied domain, each inheriting the
// original's dependency edges; with no match at all the generalist owns it.
// The returned nodes always each have exactly one owner.
func (r *Registry) Route(n *task.Node) []*task.Node {
	if n.DomainTag != "" {
		if _, ok := r.byDomain[n.DomainTag]; ok {
			owned := *n
			owned.OwnerDomain = n.DomainTag
			return []*task.Node{&owned}
		}
	}

	best := 0
	var winners []Handler
	for _, h := range r.handlers {
		score := h.Match(n)
		if score > best {
			best = score
			winners = []Handler{h}
		} else if score == best && score > 0 {
			winners = append(winners, h)
		}
	}

	switch len(winners) {
	case 0:
		owned := *n
		owned.OwnerDomain = r.generalist
		return []*task.Node{&owned}
	case 1:
		owned := *n
		owned.OwnerDomain = winners[0].Domain()
		return []*task.Node{&owned}
	}

	// Ambiguity recovers via split, never as a hard failure.
	subs := make([]*task.Node, 0, len(winners))
	for _, h := range winners {
		sub := *n
		sub.ID = n.ID + "-" + h.Domain()
		sub.OwnerDomain = h.Domain()
		sub.DomainTag = h.Domain()
		sub.DependsOn = append([]string{}, n.DependsOn...)
		subs = append(subs, &sub)
	}
	return subs
}

// RouteAll routes every node of a graph, expanding dependency edges that
// pointed at a split task to point at all of its subtasks, and returns the
// rebuilt graph.
func (r *Registry) RouteAll(g *task.Graph) (*task.Graph, error) {
	order, err := task.TopoSort(g)
	if err != nil {
		return nil, err
	}

	replacements := make(map[string][]string)
	var routed []*task.Node
	for _, id := range order {
		nodes := r.Route(g.Nodes[id])
		if len(nodes) > 1 {
			ids := make([]string, 0, len(nodes))
			for _, sub := range nodes {
				ids = append(ids, sub.ID)
			}
			replacements[id] = ids
		}
		routed = append(routed, nodes...)
	}

	for _, n := range routed {
		var deps []string
		for _, dep := range n.DependsOn {
			if subs, ok := replacements[dep]; ok {
				deps = append(deps, subs...)
			} else {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		n.DependsOn = deps
	}

	return task.Build(routed)
}

// vocabScore counts how many vocabulary words appear in the task's
// description and done criterion.
func vocabScore(vocab []string, n *task.Node) int {
	text := strings.ToLower(n.Description + " " + n.DoneCriterion)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = true
	}

	score := 0
	for _, v := range vocab {
		if words[v] {
			score++
		}
	}
	return score
}
