// Package checkpoint keeps named, timestamped snapshots of a plan and can
// push any of them back into the plan store.
package checkpoint

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thruflo/plantree/internal/plan"
	"github.com/thruflo/plantree/internal/similarity"
)

// DefaultMatchThreshold is the score a description match must exceed.
const DefaultMatchThreshold = 0.3

// ErrNameRequired is returned by Create when the name is empty.
var ErrNameRequired = errors.New("checkpoint name is required")

// PlanState is the part of the plan store that checkpoints need.
type PlanState interface {
	GetPlanState() *plan.TaskNode
	RestoreState(state *plan.TaskNode) (string, error)
}

// Checkpoint is an immutable snapshot of a plan.
type Checkpoint struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	State       *plan.TaskNode `json:"state"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Summary describes a checkpoint without its state.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// RestoreResult reports the outcome of Restore. Restore never fails with an
// error; problems are described in Message.
type RestoreResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Options configures a Store.
type Options struct {
	// Scorer ranks checkpoints against a description. Defaults to
	// similarity.Keyword.
	Scorer similarity.Scorer
	// MatchThreshold is the score a description match must exceed.
	// Zero means DefaultMatchThreshold.
	MatchThreshold float64
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Store is an append-only list of checkpoints over a plan. It references
// the plan store but does not own it.
type Store struct {
	plans     PlanState
	scorer    similarity.Scorer
	threshold float64
	now       func() time.Time

	mu          sync.Mutex
	checkpoints []*Checkpoint
	nextID      int
}

// NewStore creates a Store that snapshots and restores plans.
func NewStore(plans PlanState, opts Options) *Store {
	if opts.Scorer == nil {
		opts.Scorer = similarity.Keyword{}
	}
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = DefaultMatchThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		plans:     plans,
		scorer:    opts.Scorer,
		threshold: opts.MatchThreshold,
		now:       opts.Now,
		nextID:    1,
	}
}

// Create snapshots the current plan under name and returns the new id.
// Whatever the plan store exports is kept, including the error snapshot
// produced when no plan is active.
func (s *Store) Create(name, description string) (string, error) {
	if name == "" {
		return "", ErrNameRequired
	}

	state := s.plans.GetPlanState().Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := &Checkpoint{
		ID:          fmt.Sprintf("cp_%d", s.nextID),
		Name:        name,
		Description: description,
		State:       state,
		Timestamp:   s.now(),
	}
	s.nextID++
	s.checkpoints = append(s.checkpoints, cp)

	return cp.ID, nil
}

// List returns summaries in creation order.
func (s *Store) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, Summary{
			ID:          cp.ID,
			Name:        cp.Name,
			Description: cp.Description,
			Timestamp:   cp.Timestamp,
		})
	}
	return out
}

// Get returns a copy of the checkpoint with the given id.
func (s *Store) Get(id string) (*Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.find(id)
	if cp == nil {
		return nil, false
	}
	c := *cp
	c.State = cp.State.Clone()
	return &c, true
}

// Len returns the number of checkpoints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checkpoints)
}

// Clear drops every checkpoint and restarts ids at cp_1.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = nil
	s.nextID = 1
}

// Restore pushes a checkpoint back into the plan store. When checkpointID is
// set it must match exactly; otherwise description selects the best scoring
// checkpoint above the match threshold.
func (s *Store) Restore(checkpointID, description string) RestoreResult {
	s.mu.Lock()
	var cp *Checkpoint
	switch {
	case checkpointID != "":
		cp = s.find(checkpointID)
		if cp == nil {
			s.mu.Unlock()
			return RestoreResult{Message: fmt.Sprintf("Checkpoint not found: %s", checkpointID)}
		}
	case description != "":
		cp = s.match(description)
		if cp == nil {
			s.mu.Unlock()
			return RestoreResult{Message: fmt.Sprintf("No checkpoint matches description: %s", description)}
		}
	default:
		s.mu.Unlock()
		return RestoreResult{Message: "checkpoint id or description is required"}
	}
	id, name := cp.ID, cp.Name
	state := cp.State.Clone()
	s.mu.Unlock()

	if state.IsError() {
		return RestoreResult{
			Message:      fmt.Sprintf("Checkpoint %s holds no plan: %s", id, state.Error),
			CheckpointID: id,
		}
	}

	msg, err := s.plans.RestoreState(state)
	if err != nil {
		return RestoreResult{
			Message:      fmt.Sprintf("Failed to restore checkpoint %s: %v", id, err),
			CheckpointID: id,
		}
	}

	return RestoreResult{
		Success:      true,
		Message:      fmt.Sprintf("Restored checkpoint %s (%s): %s", id, name, msg),
		CheckpointID: id,
	}
}

// find returns the checkpoint with the given id. Callers must hold s.mu.
func (s *Store) find(id string) *Checkpoint {
	for _, cp := range s.checkpoints {
		if cp.ID == id {
			return cp
		}
	}
	return nil
}

// match returns the highest scoring checkpoint for query, or nil if none
// scores above the threshold. Ties go to the earliest checkpoint.
// Callers must hold s.mu.
func (s *Store) match(query string) *Checkpoint {
	var best *Checkpoint
	bestScore := 0.0
	for _, cp := range s.checkpoints {
		score := s.scorer.Score(query, cp.Name+" "+cp.Description)
		if best == nil || score > bestScore {
			best, bestScore = cp, score
		}
	}
	if best == nil || bestScore <= s.threshold {
		return nil
	}
	return best
}
