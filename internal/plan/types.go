// Package plan holds the active task tree for an agent: a single rooted plan
// whose tasks are keyed by sequential ids, plus the nested snapshot format used
// to export, checkpoint and restore it.
package plan

import "fmt"

// Status is the lifecycle state of a task.
type Status string

// Status values for Task.Status.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Task is a single node of the live plan.
type Task struct {
	ID          string
	Description string
	Status      Status
	ParentID    string // empty for the root
	Notes       string
	Result      string
	Subtasks    []string
}

// clone returns a copy of t that shares no slices with it.
func (t *Task) clone() Task {
	c := *t
	c.Subtasks = append([]string(nil), t.Subtasks...)
	return c
}

// TaskNode is the exported, nested form of a plan. It is what GetPlanState
// returns, what checkpoints store, and what RestoreState consumes.
//
// A snapshot taken while no plan is active carries only Error.
type TaskNode struct {
	ID          string      `json:"id,omitempty" yaml:"id,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Status      Status      `json:"status,omitempty" yaml:"status,omitempty"`
	Notes       string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	Result      string      `json:"result,omitempty" yaml:"result,omitempty"`
	Subtasks    []*TaskNode `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	Error       string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsError reports whether n is an error-shaped snapshot.
func (n *TaskNode) IsError() bool {
	return n != nil && n.Error != ""
}

// Clone returns a deep copy of n. Mutating the copy never affects n.
func (n *TaskNode) Clone() *TaskNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Subtasks != nil {
		c.Subtasks = make([]*TaskNode, len(n.Subtasks))
		for i, child := range n.Subtasks {
			c.Subtasks[i] = child.Clone()
		}
	}
	return &c
}

// Count returns the number of tasks in the tree rooted at n.
func (n *TaskNode) Count() int {
	if n == nil || n.IsError() {
		return 0
	}
	total := 1
	for _, child := range n.Subtasks {
		total += child.Count()
	}
	return total
}

// Walk visits n and its descendants depth-first, pre-order.
// depth is 0 for n itself.
func (n *TaskNode) Walk(fn func(node *TaskNode, depth int)) {
	n.walk(fn, 0)
}

func (n *TaskNode) walk(fn func(node *TaskNode, depth int), depth int) {
	if n == nil {
		return
	}
	fn(n, depth)
	for _, child := range n.Subtasks {
		child.walk(fn, depth+1)
	}
}

// Update carries the optional fields of an UpdateTask call.
// Empty strings mean "leave unchanged".
type Update struct {
	Status      Status `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Result      string `json:"result,omitempty"`
}

// Progress counts tasks per status.
type Progress struct {
	Total  int
	Counts map[Status]int
}

// Done returns the number of tasks that are completed or skipped.
func (p Progress) Done() int {
	return p.Counts[StatusCompleted] + p.Counts[StatusSkipped]
}

// String formats the progress as e.g. "2/5 done (1 in_progress, 0 failed)".
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d done (%d in_progress, %d failed)",
		p.Done(), p.Total, p.Counts[StatusInProgress], p.Counts[StatusFailed])
}
