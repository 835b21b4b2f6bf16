// Package server exposes a plantree workspace over HTTP with JSON bodies.
//
// # Endpoints
//
//   - POST /auth - exchange the configured password for a bearer token
//   - POST /plan - create a plan {"goal"}
//   - GET /plan - export the plan; ?format=json|yaml|text
//   - PUT /plan/state - replace the plan with a snapshot
//   - POST /plan/tasks - add a task {"description","parent_id","notes"}
//   - PATCH /plan/tasks/{id} - update a task {"status","description","notes","result"}
//   - GET /checkpoints - list checkpoints
//   - POST /checkpoints - create a checkpoint {"name","description"}
//   - GET /checkpoints/{id} - fetch one checkpoint with its state
//   - POST /checkpoints/restore - restore {"checkpoint_id"} or {"description"}
//   - DELETE /checkpoints - drop all checkpoints
//   - GET / - embedded dashboard
//
// # Authentication
//
// When a password hash is configured every endpoint except /auth and the
// dashboard requires an "Authorization: Bearer <token>" header. Without a
// hash the API is open, which is intended for loopback use.
//
// # Errors
//
// Rejected requests get a JSON body {"error": "..."} with 400 for malformed
// input, 404 for unknown task ids and 409 when no plan is active.
// Checkpoint restore always answers 200 with {"success", "message"}.
package server
