// Package runner executes a routed task graph: handlers run as soon as their
// prerequisites finish, and their artifacts are composed into the project
// tree in completion order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/armature-dev/armature/internal/compose"
	"github.com/armature-dev/armature/internal/review"
	"github.com/armature-dev/armature/internal/specialist"
	"github.com/armature-dev/armature/internal/task"
	"github.com/armature-dev/armature/internal/ui"
)

// TaskStatus represents the status of one task in a run.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
)

// Config controls execution.
type Config struct {
	MaxParallel int  // concurrent handler executions (default 4)
	FailFast    bool // cancel the whole run on the first failure
	Quiet       bool // suppress per-task progress lines
}

// TaskOutcome records how one task finished.
type TaskOutcome struct {
	TaskID     string     `json:"task_id"`
	Domain     string     `json:"domain"`
	Status     TaskStatus `json:"status"`
	Summary    string     `json:"summary,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitempty"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
}

// Summary is the result of executing a full graph.
type Summary struct {
	Outcomes     map[string]*TaskOutcome `json:"outcomes"`
	ChangedPaths []string                `json:"changed_paths,omitempty"`
	Report       *review.Report          `json:"report"`
	Completed    int                     `json:"completed"`
	Failed       int                     `json:"failed"`
	Skipped      int                     `json:"skipped"`
}

// Runner drives handler execution over a routed graph.
type Runner struct {
	Registry *specialist.Registry
	Composer *compose.Composer
	Env      *specialist.Env
	Config   Config

	mu         sync.Mutex
	outcomes   map[string]*TaskOutcome
	ctx        context.Context
	cancelFunc context.CancelFunc
}

type taskResult struct {
	TaskID string
	Result *specialist.Result
	Err    error
}

// New creates a Runner.
func New(reg *specialist.Registry, comp *compose.Composer, env *specialist.Env, cfg Config) *Runner {
	if cfg.MaxParallel == 0 {
		cfg.MaxParallel = 4
	}
	return &Runner{
		Registry: reg,
		Composer: comp,
		Env:      env,
		Config:   cfg,
		outcomes: make(map[string]*TaskOutcome),
	}
}

// Run executes the graph with a dynamic dependency-tracking scheduler. Each
// task is dispatched the moment all its predecessors complete. Handler
// executions run concurrently; composition happens on the event loop so
// writes land in completion order.
func (r *Runner) Run(ctx context.Context, g *task.Graph) (*Summary, error) {
	r.ctx, r.cancelFunc = context.WithCancel(ctx)
	defer r.cancelFunc()

	summary := &Summary{Outcomes: r.outcomes}

	// Pending count for each task (number of unfinished predecessors)
	pending := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		pending[id] = len(g.RevAdj[id])
		r.outcomes[id] = &TaskOutcome{
			TaskID: id,
			Domain: g.Nodes[id].OwnerDomain,
			Status: StatusPending,
		}
	}

	done := make(chan taskResult, len(g.Nodes))
	sem := make(chan struct{}, r.Config.MaxParallel)

	totalTasks := len(g.Nodes)
	inflight := 0
	totalDone := 0 // completed + failed + skipped
	finished := make(map[string]bool, totalTasks)

	if !r.Config.Quiet {
		fmt.Fprintf(os.Stderr, "\n%s (%d tasks, max %d parallel)\n", ui.BoldCyan("Scheduler started"), totalTasks, r.Config.MaxParallel)
	}

	// Dispatch all root tasks (pending == 0)
	for _, id := range sortedIDs(pending) {
		if pending[id] == 0 {
			r.dispatch(g.Nodes[id], sem, done)
			inflight++
		}
	}

	var findingSets [][]review.Finding

	for totalDone < totalTasks {
		if err := r.ctx.Err(); err != nil {
			return summary, fmt.Errorf("cancelled: %w", err)
		}

		// If nothing is in flight but tasks remain, they're unreachable
		if inflight == 0 {
			for id := range pending {
				if !finished[id] {
					r.markSkipped(id)
					finished[id] = true
					totalDone++
					summary.Skipped++
				}
			}
			break
		}

		res := <-done
		inflight--
		finished[res.TaskID] = true
		totalDone++

		if res.Err == nil && res.Result != nil && len(res.Result.Artifacts) > 0 {
			changed, composeErr := r.Composer.Compose(res.Result.Artifacts)
			summary.ChangedPaths = append(summary.ChangedPaths, changed...)
			if composeErr != nil {
				res.Err = composeErr
			}
		}

		if res.Err != nil {
			r.markFailed(res.TaskID, res.Err)
			summary.Failed++

			if r.Config.FailFast {
				fmt.Fprintf(os.Stderr, "  %s %s failed, cancelling run\n", ui.Red("✗"), ui.TaskPrefix(res.TaskID))
				r.cancelFunc()
				for inflight > 0 {
					drained := <-done
					inflight--
					totalDone++
					r.markSkipped(drained.TaskID)
					summary.Skipped++
				}
				break
			}

			if !r.Config.Quiet {
				fmt.Fprintf(os.Stderr, "  %s task %s failed: %v\n", ui.Yellow("⚠ Warning:"), res.TaskID, res.Err)
			}
			skipped := r.cascadeSkip(g, res.TaskID, finished, pending)
			totalDone += skipped
			summary.Skipped += skipped
			continue
		}

		r.markCompleted(res.TaskID, res.Result)
		summary.Completed++
		if res.Result != nil && len(res.Result.Findings) > 0 {
			findingSets = append(findingSets, res.Result.Findings)
		}

		// Dispatch ready successors
		for _, succID := range g.Adj[res.TaskID] {
			if finished[succID] {
				continue
			}
			pending[succID]--
			if pending[succID] == 0 {
				r.dispatch(g.Nodes[succID], sem, done)
				inflight++
			}
		}
	}

	summary.Report = review.Aggregate(findingSets)
	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d tasks failed", summary.Failed, totalTasks)
	}
	return summary, nil
}

// dispatch launches a handler in a goroutine: acquire semaphore, execute,
// send the result on the done channel. Artifacts are not composed here.
func (r *Runner) dispatch(n *task.Node, sem chan struct{}, done chan<- taskResult) {
	h, ok := r.Registry.Lookup(n.OwnerDomain)
	if !ok {
		done <- taskResult{TaskID: n.ID, Err: fmt.Errorf("no handler for domain %q", n.OwnerDomain)}
		return
	}

	r.markRunning(n.ID)
	if !r.Config.Quiet {
		fmt.Fprintf(os.Stderr, "  ▶ %s %s\n", ui.TaskPrefix(n.ID), n.Description)
	}

	go func() {
		sem <- struct{}{}        // acquire semaphore
		defer func() { <-sem }() // release semaphore

		if err := r.ctx.Err(); err != nil {
			done <- taskResult{TaskID: n.ID, Err: err}
			return
		}

		res, err := h.Execute(r.ctx, n, r.Env)
		done <- taskResult{TaskID: n.ID, Result: res, Err: err}
	}()
}

// cascadeSkip performs BFS through the successor graph from a failed task,
// marking all transitively dependent tasks as skipped. Returns count of
// skipped tasks.
func (r *Runner) cascadeSkip(g *task.Graph, failedID string, finished map[string]bool, pending map[string]int) int {
	skipped := 0
	queue := []string{}

	for _, succID := range g.Adj[failedID] {
		if !finished[succID] {
			queue = append(queue, succID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if finished[id] {
			continue
		}

		r.markSkipped(id)
		finished[id] = true
		skipped++

		for _, succID := range g.Adj[id] {
			if !finished[succID] {
				queue = append(queue, succID)
			}
		}
	}

	return skipped
}

func (r *Runner) markRunning(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[taskID]
	o.Status = StatusRunning
	o.StartedAt = time.Now()
}

func (r *Runner) markCompleted(taskID string, res *specialist.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[taskID]
	o.Status = StatusCompleted
	o.FinishedAt = time.Now()
	if res != nil {
		o.Summary = res.Summary
	}
	if !r.Config.Quiet {
		elapsed := o.FinishedAt.Sub(o.StartedAt)
		fmt.Fprintf(os.Stderr, "  %s %s %s %s\n", ui.Green("✓"), ui.TaskPrefix(taskID), o.Summary, ui.Dim(fmt.Sprintf("(%.2fs)", elapsed.Seconds())))
	}
}

func (r *Runner) markFailed(taskID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[taskID]
	o.Status = StatusFailed
	o.FinishedAt = time.Now()
	o.Error = err.Error()
	if !r.Config.Quiet {
		var ce *compose.Error
		label := "Failed"
		if errors.As(err, &ce) {
			label = "Compose failed"
		}
		fmt.Fprintf(os.Stderr, "  %s %s %s\n", ui.Red("✗"), ui.TaskPrefix(taskID), ui.Red(label))
	}
}

func (r *Runner) markSkipped(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[taskID]
	o.Status = StatusSkipped
	o.FinishedAt = time.Now()
	if !r.Config.Quiet {
		fmt.Fprintf(os.Stderr, "  ⊘ %s %s\n", ui.TaskPrefix(taskID), ui.Yellow("Skipped (predecessor failed)"))
	}
}

// Outcome returns the recorded outcome for a task.
func (r *Runner) Outcome(taskID string) *TaskOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[taskID]
}

func sortedIDs(pending map[string]int) []string {
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
