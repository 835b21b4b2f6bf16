// Package workspace pairs a plan store with its checkpoint store and routes
// every request through one lock, so that id allocation, tree edits and
// checkpoint restores from concurrent callers never interleave.
package workspace

import (
	"sync"

	"github.com/thruflo/plantree/internal/checkpoint"
	"github.com/thruflo/plantree/internal/logging"
	"github.com/thruflo/plantree/internal/plan"
)

// Workspace is the shared entry point for the request layers.
type Workspace struct {
	mu          sync.Mutex
	plans       *plan.Store
	checkpoints *checkpoint.Store
	log         *logging.Logger
}

// Options configures a Workspace.
type Options struct {
	Checkpoints checkpoint.Options
	// Logger defaults to the package-level logger.
	Logger *logging.Logger
}

// New creates a Workspace with an empty plan and no checkpoints.
func New(opts Options) *Workspace {
	plans := plan.NewStore()
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Workspace{
		plans:       plans,
		checkpoints: checkpoint.NewStore(plans, opts.Checkpoints),
		log:         log.With("component", "workspace"),
	}
}

// CreatePlan starts a new plan, discarding the current one.
func (w *Workspace) CreatePlan(goal string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg, err := w.plans.CreatePlan(goal)
	w.record("create_plan", err, "goal", goal)
	return msg, err
}

// AddTask adds a task under parentID, or under the root when it is empty.
func (w *Workspace) AddTask(description, parentID, notes string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg, err := w.plans.AddTask(description, parentID, notes)
	w.record("add_task", err, "parent", parentID)
	return msg, err
}

// UpdateTask applies u to task id.
func (w *Workspace) UpdateTask(id string, u plan.Update) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg, err := w.plans.UpdateTask(id, u)
	w.record("update_task", err, "task", id, "status", string(u.Status))
	return msg, err
}

// PlanState exports the current plan.
func (w *Workspace) PlanState() *plan.TaskNode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.plans.GetPlanState()
}

// FormatPlan renders the current plan.
func (w *Workspace) FormatPlan() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.plans.FormatPlan()
}

// Progress counts the tasks of the current plan per status.
func (w *Workspace) Progress() plan.Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.plans.Progress()
}

// RestoreState replaces the current plan with state.
func (w *Workspace) RestoreState(state *plan.TaskNode) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg, err := w.plans.RestoreState(state)
	w.record("restore_state", err, "tasks", state.Count())
	return msg, err
}

// CreateCheckpoint snapshots the current plan.
func (w *Workspace) CreateCheckpoint(name, description string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id, err := w.checkpoints.Create(name, description)
	w.record("create_checkpoint", err, "checkpoint", id, "name", name)
	return id, err
}

// ListCheckpoints returns checkpoint summaries in creation order.
func (w *Workspace) ListCheckpoints() []checkpoint.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkpoints.List()
}

// Checkpoint returns a copy of the checkpoint with the given id.
func (w *Workspace) Checkpoint(id string) (*checkpoint.Checkpoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkpoints.Get(id)
}

// RestoreCheckpoint restores by exact id, or by description when id is empty.
func (w *Workspace) RestoreCheckpoint(id, description string) checkpoint.RestoreResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := w.checkpoints.Restore(id, description)
	if res.Success {
		w.log.Debug("restore_checkpoint", "checkpoint", res.CheckpointID)
	} else {
		w.log.Warn("restore_checkpoint rejected", "checkpoint", id, "description", description, "reason", res.Message)
	}
	return res
}

// ClearCheckpoints drops every checkpoint.
func (w *Workspace) ClearCheckpoints() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.checkpoints.Clear()
	w.log.Debug("clear_checkpoints")
}

// record logs the outcome of op: debug on success, warn on rejection.
func (w *Workspace) record(op string, err error, keyVals ...interface{}) {
	if err != nil {
		w.log.Warn(op+" rejected", append(keyVals, "error", err)...)
		return
	}
	w.log.Debug(op, keyVals...)
}
