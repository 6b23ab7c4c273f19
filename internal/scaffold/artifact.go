package scaffold

// Kind classifies a generated artifact.
type Kind string

const (
	KindRoute      Kind = "route"
	KindController Kind = "controller"
	KindService    Kind = "service"
	KindSchema     Kind = "schema-fragment"
	KindError      Kind = "error-type"
	KindMiddleware Kind = "middleware"
	KindProject    Kind = "project"
)

// MergeStrategy tells the composer how to apply an artifact to the tree.
type MergeStrategy string

const (
	// MergeReplace overwrites the target path entirely.
	MergeReplace MergeStrategy = "replace-whole-file"
	// MergeInsert inserts the content into an aggregator file above its
	// anchor line, once per InsertKey.
	MergeInsert MergeStrategy = "idempotent-insert-into-aggregator"
)

// Artifact is one generated unit of source content with a target path and
// merge strategy. All artifacts emitted for the same resource carry naming
// derived from a single Forms value, so they can never disagree on spelling.
type Artifact struct {
	Path       string        `json:"path"`
	Kind       Kind          `json:"kind"`
	Merge      MergeStrategy `json:"merge"`
	Content    string        `json:"content"`
	Resource   string        `json:"resource,omitempty"`   // canonical resource name, "" for project-level files
	Capability Capability    `json:"capability,omitempty"` // capability that produced it, "" for base and relation artifacts
	InsertKey  string        `json:"insert_key,omitempty"` // identity of an inserted chunk (MergeInsert only)
	Anchor     string        `json:"anchor,omitempty"`     // marker line the chunk is inserted above (MergeInsert only)
}

// Group is the set of artifacts produced by one capability.
type Group struct {
	Capability Capability
	Artifacts  []Artifact
}

// GroupByCapability splits an artifact sequence into per-capability groups,
// preserving emission order. Artifacts with no capability (relation and base
// artifacts) are returned separately.
func GroupByCapability(artifacts []Artifact) (groups []Group, rest []Artifact) {
	idx := map[Capability]int{}
	for _, a := range artifacts {
		if a.Capability == "" {
			rest = append(rest, a)
			continue
		}
		i, ok := idx[a.Capability]
		if !ok {
			i = len(groups)
			idx[a.Capability] = i
			groups = append(groups, Group{Capability: a.Capability})
		}
		groups[i].Artifacts = append(groups[i].Artifacts, a)
	}
	return groups, rest
}
