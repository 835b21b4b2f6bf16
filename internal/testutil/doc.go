// Package testutil provides shared test utilities for plantree.
//
// # Fixtures
//
// The fixtures.go file provides sample plans:
//
//   - SampleTree() - a fresh three-level snapshot with every status in use
//   - SampleTreeJSON - the same snapshot as a JSON document
//   - BuildSamplePlan(t, b) - builds the "Build X" plan through the public API
//     of anything that can create, add and update tasks
//
// # Environment Helpers
//
// The env.go file provides test environment setup:
//
//   - SetupTestDir(t) - creates a temp directory with a .plantree directory
//   - WriteConfig(t, base, content) - writes .plantree/config.yaml
//   - WriteTestFile(t, base, path, content) - writes a file in test dir
//   - MustMarshalJSON(t, v) / MustUnmarshalJSON(t, data, v)
//
// # Assertions
//
// The assertions.go file provides tree assertions:
//
//   - FindTask(root, id) - looks a task up in a snapshot
//   - AssertTaskStatus(t, root, id, status)
//   - AssertTreeIDs(t, root, ids...) - pre-order id sequence
//   - AssertUniqueIDs(t, root)
//   - AssertNoPlan(t, root)
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    store := plan.NewStore()
//	    testutil.BuildSamplePlan(t, store)
//	    testutil.AssertTaskStatus(t, store.GetPlanState(), "2", plan.StatusCompleted)
//	}
package testutil
