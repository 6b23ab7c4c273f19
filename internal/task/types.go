package task

// Node is a single unit of work in a decomposed plan.
type Node struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	OwnerDomain    string   `json:"owner_domain,omitempty"` // empty until routed
	DomainTag      string   `json:"domain_tag,omitempty"`   // explicit tag, wins during routing
	DependsOn      []string `json:"depends_on,omitempty"`
	Parallelizable bool     `json:"parallelizable"`
	DoneCriterion  string   `json:"done_criterion"`
}

// Graph is a directed acyclic graph of task nodes. Edges point from a
// prerequisite to the tasks that depend on it.
type Graph struct {
	Nodes  map[string]*Node
	Adj    map[string][]string // node -> nodes that depend on it
	RevAdj map[string][]string // node -> its prerequisites
	Roots  []string            // nodes with no prerequisites
	Leaves []string            // nodes nothing depends on
}

// Wave is a group of tasks whose prerequisites are all in earlier waves, so
// its members may run in parallel.
type Wave struct {
	Index          int
	TaskIDs        []string
	Parallelizable bool // more than one member
}
