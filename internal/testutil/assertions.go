package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/plantree/internal/plan"
)

// FindTask returns the node with the given id, or nil.
func FindTask(root *plan.TaskNode, id string) *plan.TaskNode {
	var found *plan.TaskNode
	root.Walk(func(n *plan.TaskNode, _ int) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// AssertTaskStatus asserts that task id exists in root with the given status.
func AssertTaskStatus(t *testing.T, root *plan.TaskNode, id string, expected plan.Status) {
	t.Helper()

	node := FindTask(root, id)
	require.NotNil(t, node, "task %s not found", id)
	assert.Equal(t, expected, node.Status, "task %s status mismatch", id)
}

// AssertTreeIDs asserts the ids of root in depth-first pre-order.
func AssertTreeIDs(t *testing.T, root *plan.TaskNode, expected ...string) {
	t.Helper()

	var ids []string
	root.Walk(func(n *plan.TaskNode, _ int) {
		ids = append(ids, n.ID)
	})
	assert.Equal(t, expected, ids, "tree ids mismatch")
}

// AssertUniqueIDs asserts that no id appears twice in root.
func AssertUniqueIDs(t *testing.T, root *plan.TaskNode) {
	t.Helper()

	seen := make(map[string]bool)
	root.Walk(func(n *plan.TaskNode, _ int) {
		assert.False(t, seen[n.ID], "duplicate task id %s", n.ID)
		seen[n.ID] = true
	})
}

// AssertNoPlan asserts that root is the snapshot exported with no plan.
func AssertNoPlan(t *testing.T, root *plan.TaskNode) {
	t.Helper()

	require.NotNil(t, root)
	assert.True(t, root.IsError(), "expected the no-plan snapshot")
	assert.Equal(t, "No plan active", root.Error)
	assert.Zero(t, root.Count())
}
