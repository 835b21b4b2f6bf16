package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thruflo/plantree/internal/plan"
)

// SampleTreeJSON is SampleTree encoded as a snapshot document.
const SampleTreeJSON = `{
  "id": "1",
  "description": "Ship release 2.0",
  "status": "in_progress",
  "subtasks": [
    {
      "id": "2",
      "description": "Freeze branch",
      "status": "completed",
      "result": "release/2.0 cut"
    },
    {
      "id": "3",
      "description": "Run migrations",
      "status": "in_progress",
      "notes": "staging first",
      "subtasks": [
        {"id": "4", "description": "Staging", "status": "failed", "notes": "lock timeout"},
        {"id": "5", "description": "Production", "status": "pending"}
      ]
    },
    {
      "id": "6",
      "description": "Announce",
      "status": "skipped"
    }
  ]
}`

// SampleTree returns a new snapshot with six tasks over three levels.
// Returns a new tree each time to prevent test interference.
func SampleTree() *plan.TaskNode {
	return &plan.TaskNode{
		ID:          "1",
		Description: "Ship release 2.0",
		Status:      plan.StatusInProgress,
		Subtasks: []*plan.TaskNode{
			{
				ID:          "2",
				Description: "Freeze branch",
				Status:      plan.StatusCompleted,
				Result:      "release/2.0 cut",
			},
			{
				ID:          "3",
				Description: "Run migrations",
				Status:      plan.StatusInProgress,
				Notes:       "staging first",
				Subtasks: []*plan.TaskNode{
					{ID: "4", Description: "Staging", Status: plan.StatusFailed, Notes: "lock timeout"},
					{ID: "5", Description: "Production", Status: plan.StatusPending},
				},
			},
			{ID: "6", Description: "Announce", Status: plan.StatusSkipped},
		},
	}
}

// PlanBuilder is satisfied by plan.Store and workspace.Workspace.
type PlanBuilder interface {
	CreatePlan(goal string) (string, error)
	AddTask(description, parentID, notes string) (string, error)
	UpdateTask(id string, u plan.Update) (string, error)
}

// BuildSamplePlan creates the "Build X" plan on b:
//
//	1 Build X (in_progress)
//	  2 Step A (completed, result "done")
//	  3 Step B (pending)
//	    4 Step B.1 (pending, notes "needs review")
func BuildSamplePlan(t *testing.T, b PlanBuilder) {
	t.Helper()

	_, err := b.CreatePlan("Build X")
	require.NoError(t, err)
	_, err = b.AddTask("Step A", "", "")
	require.NoError(t, err)
	_, err = b.AddTask("Step B", "1", "")
	require.NoError(t, err)
	_, err = b.AddTask("Step B.1", "3", "needs review")
	require.NoError(t, err)
	_, err = b.UpdateTask("1", plan.Update{Status: plan.StatusInProgress})
	require.NoError(t, err)
	_, err = b.UpdateTask("2", plan.Update{Status: plan.StatusCompleted, Result: "done"})
	require.NoError(t, err)
}
