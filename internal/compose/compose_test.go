package compose

import (
	"errors"
	"sync"
	"testing"

	"github.com/armature-dev/armature/internal/scaffold"
)

const aggregator = "// methods\n// armature:methods\n"

func insertArtifact(key, content string) scaffold.Artifact {
	return scaffold.Artifact{
		Path:      "src/agg.ts",
		Kind:      scaffold.KindService,
		Merge:     scaffold.MergeInsert,
		Content:   content,
		InsertKey: key,
		Anchor:    "// armature:methods",
	}
}

func TestCompose_ReplaceWholeFile(t *testing.T) {
	tree := NewMemTree(nil)
	c := New(tree, nil)

	changed, err := c.Compose([]scaffold.Artifact{{
		Path:    "src/app.ts",
		Kind:    scaffold.KindProject,
		Merge:   scaffold.MergeReplace,
		Content: "export const app = 1;\n",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 1 || changed[0] != "src/app.ts" {
		t.Errorf("expected changed=[src/app.ts], got %v", changed)
	}

	got, ok, _ := tree.Read("src/app.ts")
	if !ok || got != "export const app = 1;\n" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestCompose_InsertAboveAnchor(t *testing.T) {
	tree := NewMemTree(map[string]string{"src/agg.ts": aggregator})
	c := New(tree, nil)

	_, err := c.Compose([]scaffold.Artifact{insertArtifact("post:service:list", "list() {}")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _, _ := tree.Read("src/agg.ts")
	want := "// methods\nlist() {}\n// armature:methods\n"
	if got != want {
		t.Errorf("content mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestCompose_InsertIsIdempotent(t *testing.T) {
	tree := NewMemTree(map[string]string{"src/agg.ts": aggregator})
	c := New(tree, nil)

	a := insertArtifact("post:service:list", "list() {}")
	if _, err := c.Compose([]scaffold.Artifact{a}); err != nil {
		t.Fatalf("first compose: %v", err)
	}
	first, _, _ := tree.Read("src/agg.ts")

	// Same artifact again: the aggregator must not change.
	mutated, err := c.Apply(a)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if mutated {
		t.Error("second apply reported a mutation")
	}

	second, _, _ := tree.Read("src/agg.ts")
	if first != second {
		t.Errorf("aggregator changed on re-apply:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestCompose_IndexSurvivesNewComposer(t *testing.T) {
	tree := NewMemTree(map[string]string{"src/agg.ts": aggregator})
	index := NewIndex()

	a := insertArtifact("post:service:list", "list() {}")
	if _, err := New(tree, index).Compose([]scaffold.Artifact{a}); err != nil {
		t.Fatalf("first compose: %v", err)
	}
	first, _, _ := tree.Read("src/agg.ts")

	// A later run sharing the persisted index must be a no-op.
	mutated, err := New(tree, index).Apply(a)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if mutated {
		t.Error("second run reported a mutation")
	}
	second, _, _ := tree.Read("src/agg.ts")
	if first != second {
		t.Error("aggregator changed across runs sharing an index")
	}
}

func TestCompose_ContentPresenceBackfillsIndex(t *testing.T) {
	// Chunk already in the file but not in the index (hand-edited project).
	tree := NewMemTree(map[string]string{"src/agg.ts": "// methods\nlist() {}\n// armature:methods\n"})
	c := New(tree, nil)

	mutated, err := c.Apply(insertArtifact("post:service:list", "list() {}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mutated {
		t.Error("existing chunk should not mutate the file")
	}
	if !c.Index.Has("src/agg.ts", "post:service:list") {
		t.Error("index should record the pre-existing chunk")
	}
}

func TestCompose_MissingAnchor(t *testing.T) {
	tree := NewMemTree(map[string]string{"src/agg.ts": "nothing here\n"})
	c := New(tree, nil)

	_, err := c.Apply(insertArtifact("k", "chunk"))
	if err == nil {
		t.Fatal("expected anchor error, got nil")
	}
	t.Logf("anchor error (expected): %v", err)
}

func TestCompose_MissingAggregator(t *testing.T) {
	c := New(NewMemTree(nil), nil)

	_, err := c.Apply(insertArtifact("k", "chunk"))
	if err == nil {
		t.Fatal("expected missing aggregator error, got nil")
	}
}

func TestCompose_PathConflictReportsBothArtifacts(t *testing.T) {
	tree := NewMemTree(nil)
	c := New(tree, nil)

	first := scaffold.Artifact{
		Path:    "src/services/post.service.ts",
		Kind:    scaffold.KindService,
		Merge:   scaffold.MergeReplace,
		Content: "service",
	}
	second := scaffold.Artifact{
		Path:    "src/services/post.service.ts",
		Kind:    scaffold.KindController,
		Merge:   scaffold.MergeReplace,
		Content: "controller",
	}

	if _, err := c.Apply(first); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	_, err := c.Apply(second)
	if err == nil {
		t.Fatal("expected path conflict, got nil")
	}

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if ce.Reason != "path-conflict" {
		t.Errorf("expected reason path-conflict, got %q", ce.Reason)
	}
	if ce.First.Kind != scaffold.KindService || ce.Second.Kind != scaffold.KindController {
		t.Errorf("error should carry both artifacts, got first=%s second=%s", ce.First.Kind, ce.Second.Kind)
	}
}

func TestCompose_SameKindRewriteAllowed(t *testing.T) {
	tree := NewMemTree(nil)
	c := New(tree, nil)

	a := scaffold.Artifact{Path: "p.ts", Kind: scaffold.KindService, Merge: scaffold.MergeReplace, Content: "v1"}
	b := scaffold.Artifact{Path: "p.ts", Kind: scaffold.KindService, Merge: scaffold.MergeReplace, Content: "v2"}

	if _, err := c.Apply(a); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := c.Apply(b); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	got, _, _ := tree.Read("p.ts")
	if got != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}

func TestCompose_StopsOnErrorKeepsAppliedWrites(t *testing.T) {
	tree := NewMemTree(nil)
	c := New(tree, nil)

	artifacts := []scaffold.Artifact{
		{Path: "a.ts", Kind: scaffold.KindService, Merge: scaffold.MergeReplace, Content: "a"},
		{Path: "missing-agg.ts", Kind: scaffold.KindService, Merge: scaffold.MergeInsert, Content: "x", InsertKey: "k", Anchor: "// a"},
		{Path: "b.ts", Kind: scaffold.KindService, Merge: scaffold.MergeReplace, Content: "b"},
	}

	changed, err := c.Compose(artifacts)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(changed) != 1 || changed[0] != "a.ts" {
		t.Errorf("expected changed=[a.ts], got %v", changed)
	}
	if _, ok, _ := tree.Read("a.ts"); !ok {
		t.Error("applied write before the failure should be kept")
	}
	if _, ok, _ := tree.Read("b.ts"); ok {
		t.Error("write after the failure should not have happened")
	}
}

func TestCompose_ConcurrentWritersOnSamePath(t *testing.T) {
	tree := NewMemTree(map[string]string{"src/agg.ts": aggregator})
	c := New(tree, nil)

	// Hold the path lock as a concurrent writer would.
	lock := c.pathLock("src/agg.ts")
	lock.Lock()

	_, err := c.Apply(insertArtifact("k", "chunk"))
	lock.Unlock()

	if err == nil {
		t.Fatal("expected concurrent-write error, got nil")
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Reason != "concurrent-write" {
		t.Fatalf("expected concurrent-write *Error, got %v", err)
	}
}

func TestCompose_ParallelDisjointPaths(t *testing.T) {
	tree := NewMemTree(nil)
	c := New(tree, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := scaffold.Artifact{
				Path:    string(rune('a'+i)) + ".ts",
				Kind:    scaffold.KindService,
				Merge:   scaffold.MergeReplace,
				Content: "x",
			}
			if _, err := c.Apply(a); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("parallel apply failed: %v", err)
	}
}
