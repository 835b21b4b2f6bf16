package plan

import (
	"fmt"
	"strconv"
	"sync"
)

// rootID is the id given to the root task of every new plan.
const rootID = "1"

// Store owns the active plan. It holds at most one plan at a time; creating
// or restoring a plan replaces the previous one entirely.
//
// All methods are safe for concurrent use; each runs to completion under a
// single lock.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*Task
	root  string
}

// NewStore creates an empty Store with no active plan.
func NewStore() *Store {
	return &Store{tasks: make(map[string]*Task)}
}

// CreatePlan discards any existing plan and starts a new one whose root task
// describes goal.
func (s *Store) CreatePlan(goal string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = map[string]*Task{
		rootID: {
			ID:          rootID,
			Description: goal,
			Status:      StatusPending,
			Subtasks:    []string{},
		},
	}
	s.root = rootID

	return fmt.Sprintf("Created plan %q with root task %s", goal, rootID), nil
}

// AddTask attaches a new pending task under parentID, or under the root when
// parentID is empty.
func (s *Store) AddTask(description, parentID, notes string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return "", ErrNoActivePlan
	}

	if parentID == "" {
		parentID = s.root
	}
	parent, ok := s.tasks[parentID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}

	id := s.nextID()
	s.tasks[id] = &Task{
		ID:          id,
		Description: description,
		Status:      StatusPending,
		ParentID:    parentID,
		Notes:       notes,
		Subtasks:    []string{},
	}
	parent.Subtasks = append(parent.Subtasks, id)

	return fmt.Sprintf("Added task %s under %s: %s", id, parentID, description), nil
}

// nextID returns (task count + 1) as a string, skipping forward past ids that
// a restored snapshot may already occupy. Callers must hold s.mu.
func (s *Store) nextID() string {
	n := len(s.tasks) + 1
	for {
		id := strconv.Itoa(n)
		if _, taken := s.tasks[id]; !taken {
			return id
		}
		n++
	}
}

// UpdateTask applies the non-empty fields of u to task id. Notes are appended
// on a new line instead of replacing what is already there.
func (s *Store) UpdateTask(id string, u Update) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if u.Status != "" && !u.Status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, u.Status)
	}

	if u.Status != "" {
		task.Status = u.Status
	}
	if u.Description != "" {
		task.Description = u.Description
	}
	if u.Notes != "" {
		if task.Notes == "" {
			task.Notes = u.Notes
		} else {
			task.Notes = task.Notes + "\n" + u.Notes
		}
	}
	if u.Result != "" {
		task.Result = u.Result
	}

	return fmt.Sprintf("Updated task %s (%s)", id, task.Status), nil
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.clone(), true
}

// Len returns the number of tasks in the active plan.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Progress counts the tasks of the active plan per status.
func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Progress{Total: len(s.tasks), Counts: make(map[Status]int, len(Statuses))}
	for _, task := range s.tasks {
		p.Counts[task.Status]++
	}
	return p
}

// GetPlanState exports the active plan as a nested snapshot. The result
// shares nothing with the store. With no active plan it returns an
// error-shaped snapshot.
func (s *Store) GetPlanState() *TaskNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[s.root]; !ok || s.root == "" {
		return &TaskNode{Error: noPlanMessage}
	}
	return s.materialize(s.root)
}

// materialize builds the snapshot of the subtree rooted at id.
// Callers must hold s.mu.
func (s *Store) materialize(id string) *TaskNode {
	task := s.tasks[id]
	node := &TaskNode{
		ID:          task.ID,
		Description: task.Description,
		Status:      task.Status,
		Notes:       task.Notes,
		Result:      task.Result,
		Subtasks:    make([]*TaskNode, 0, len(task.Subtasks)),
	}
	for _, childID := range task.Subtasks {
		node.Subtasks = append(node.Subtasks, s.materialize(childID))
	}
	return node
}

// FormatPlan renders the active plan as an indented tree.
func (s *Store) FormatPlan() string {
	return Format(s.GetPlanState())
}

// RestoreState replaces the active plan with the tree in state. Ids are kept
// exactly as they appear in the snapshot. The snapshot is validated before
// anything is replaced, so a rejected restore leaves the current plan intact.
func (s *Store) RestoreState(state *TaskNode) (string, error) {
	if state == nil {
		return "", fmt.Errorf("%w: state is required", ErrInvalidState)
	}
	if state.IsError() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, state.Error)
	}
	if err := validateTree(state); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*Task)
	s.root = state.ID
	s.replay(state, "")

	return fmt.Sprintf("Restored %d tasks", len(s.tasks)), nil
}

// replay inserts node and its descendants, linking each to parentID.
// Callers must hold s.mu.
func (s *Store) replay(node *TaskNode, parentID string) {
	status := node.Status
	if status == "" {
		status = StatusPending
	}
	task := &Task{
		ID:          node.ID,
		Description: node.Description,
		Status:      status,
		ParentID:    parentID,
		Notes:       node.Notes,
		Result:      node.Result,
		Subtasks:    make([]string, 0, len(node.Subtasks)),
	}
	s.tasks[task.ID] = task

	for _, child := range node.Subtasks {
		task.Subtasks = append(task.Subtasks, child.ID)
		s.replay(child, task.ID)
	}
}

// validateTree checks that every node has a unique non-empty id and a known
// status. Since children are nested values, a valid tree cannot contain
// cycles or shared children.
func validateTree(root *TaskNode) error {
	seen := make(map[string]bool)
	var check func(n *TaskNode) error
	check = func(n *TaskNode) error {
		if n == nil {
			return fmt.Errorf("%w: nil subtask", ErrInvalidState)
		}
		if n.IsError() {
			return fmt.Errorf("%w: subtask carries error %q", ErrInvalidState, n.Error)
		}
		if n.ID == "" {
			return fmt.Errorf("%w: task without id", ErrInvalidState)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate task id %s", ErrInvalidState, n.ID)
		}
		seen[n.ID] = true
		if n.Status != "" && !n.Status.Valid() {
			return fmt.Errorf("%w: task %s has status %q", ErrInvalidState, n.ID, n.Status)
		}
		for _, child := range n.Subtasks {
			if err := check(child); err != nil {
				return err
			}
		}
		return nil
	}
	return check(root)
}
