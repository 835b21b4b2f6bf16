package plan

import "errors"

// Errors returned by Store. They describe bad caller input and are never
// retried.
var (
	// ErrNoActivePlan is returned when a task is added before CreatePlan.
	ErrNoActivePlan = errors.New("no active plan")
	// ErrParentNotFound is returned when the resolved parent id does not exist.
	ErrParentNotFound = errors.New("parent task not found")
	// ErrTaskNotFound is returned when updating an id that does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidState is returned when restoring a nil, error-shaped or
	// malformed snapshot.
	ErrInvalidState = errors.New("invalid plan state")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")
)

// noPlanMessage is the error text carried by a snapshot taken with no plan.
const noPlanMessage = "No plan active"
