package specialist

import (
	"testing"

	"github.com/armature-dev/armature/internal/catalog"
	"github.com/armature-dev/armature/internal/task"
)

func TestNewRegistry_CoversCatalogAndGeneralist(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	for _, d := range []string{"schema", "types", "api", "infra", "review", "orchestrator"} {
		if _, ok := reg.Lookup(d); !ok {
			t.Errorf("missing handler for %q", d)
		}
	}
	if len(reg.Handlers()) != 6 {
		t.Errorf("expected 6 handlers, got %d", len(reg.Handlers()))
	}
}

func TestRoute_ExplicitTagWins(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	// The description is pure api vocabulary, but the tag pins ownership.
	n := &task.Node{
		ID:          "t1",
		Description: "scaffold the route controller service endpoint",
		DomainTag:   "schema",
	}
	routed := reg.Route(n)
	if len(routed) != 1 {
		t.Fatalf("expected 1 node, got %d", len(routed))
	}
	if routed[0].OwnerDomain != "schema" {
		t.Errorf("expected owner schema, got %q", routed[0].OwnerDomain)
	}
}

func TestRoute_UnknownTagFallsThroughToKeywords(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	n := &task.Node{
		ID:          "t1",
		Description: "scaffold the comment route and controller",
		DomainTag:   "frontend",
	}
	routed := reg.Route(n)
	if len(routed) != 1 || routed[0].OwnerDomain != "api" {
		t.Errorf("expected api ownership via keywords, got %+v", routed)
	}
}

func TestRoute_BestKeywordScore(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	// Two api words beat one schema word.
	n := &task.Node{ID: "t1", Description: "expose the model through a route and controller"}
	routed := reg.Route(n)
	if len(routed) != 1 || routed[0].OwnerDomain != "api" {
		t.Errorf("expected api ownership, got %+v", routed)
	}
}

func TestRoute_TieSplitsPerDomain(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	n := &task.Node{
		ID:          "t1",
		Description: "update the model and the middleware",
		DependsOn:   []string{"t0"},
	}
	routed := reg.Route(n)
	if len(routed) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(routed))
	}

	owners := map[string]bool{}
	for _, sub := range routed {
		if sub.OwnerDomain == "" {
			t.Errorf("subtask %s has no owner", sub.ID)
		}
		if owners[sub.OwnerDomain] {
			t.Errorf("domain %s owns two subtasks", sub.OwnerDomain)
		}
		owners[sub.OwnerDomain] = true

		if sub.ID != n.ID+"-"+sub.OwnerDomain {
			t.Errorf("unexpected subtask ID %q", sub.ID)
		}
		if len(sub.DependsOn) != 1 || sub.DependsOn[0] != "t0" {
			t.Errorf("subtask %s did not inherit dependencies: %v", sub.ID, sub.DependsOn)
		}
	}
	if !owners["schema"] || !owners["infra"] {
		t.Errorf("expected a schema and an infra subtask, got %v", owners)
	}

	// The original node is untouched.
	if n.OwnerDomain != "" || n.ID != "t1" {
		t.Errorf("Route mutated its input: %+v", n)
	}
}

func TestRoute_NoMatchGoesToGeneralist(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	n := &task.Node{ID: "t1", Description: "coordinate everything somehow"}
	routed := reg.Route(n)
	if len(routed) != 1 || routed[0].OwnerDomain != "orchestrator" {
		t.Errorf("expected generalist ownership, got %+v", routed)
	}
}

func TestRouteAll_RewritesEdgesToSubtasks(t *testing.T) {
	reg := NewRegistry(catalog.Default())

	g, err := task.Build([]*task.Node{
		{ID: "a", Description: "update the model and the middleware"},
		{ID: "b", Description: "scaffold the comment route and controller", DependsOn: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}

	routed, err := reg.RouteAll(g)
	if err != nil {
		t.Fatalf("RouteAll failed: %v", err)
	}

	if len(routed.Nodes) != 3 {
		t.Fatalf("expected 3 nodes after split, got %d", len(routed.Nodes))
	}
	b := routed.Nodes["b"]
	if b == nil {
		t.Fatalf("node b missing after routing")
	}
	if len(b.DependsOn) != 2 || b.DependsOn[0] != "a-infra" || b.DependsOn[1] != "a-schema" {
		t.Errorf("expected b to depend on both subtasks, got %v", b.DependsOn)
	}

	for id, n := range routed.Nodes {
		if n.OwnerDomain == "" {
			t.Errorf("node %s has no owner after RouteAll", id)
		}
	}
}
