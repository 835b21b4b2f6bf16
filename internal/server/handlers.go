package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/thruflo/plantree/internal/checkpoint"
	"github.com/thruflo/plantree/internal/plan"
	"github.com/thruflo/plantree/internal/state"
)

// maxBodyBytes caps request bodies, including restored snapshots.
const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type createPlanRequest struct {
	Goal string `json:"goal"`
}

type addTaskRequest struct {
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	Notes       string `json:"notes"`
}

type updateTaskRequest struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	Result      string `json:"result"`
}

type createCheckpointRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createCheckpointResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type restoreCheckpointRequest struct {
	CheckpointID string `json:"checkpoint_id"`
	Description  string `json:"description"`
}

// handleCreatePlan handles POST /plan.
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Goal) == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	msg, err := s.ws.CreatePlan(req.Goal)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

// handleGetPlan handles GET /plan. The format query parameter selects json
// (default), yaml or text.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, s.ws.FormatPlan()+"\n")
		return
	}

	f := state.FormatJSON
	if format != "" {
		parsed, err := state.ParseFormat(format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f = parsed
	}

	data, err := state.Marshal(s.ws.PlanState(), f)
	if err != nil {
		s.log.Error("failed to encode plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleRestoreState handles PUT /plan/state. The body is a snapshot in
// JSON, or YAML when the Content-Type says so.
func (s *Server) handleRestoreState(w http.ResponseWriter, r *http.Request) {
	f := state.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		f = state.FormatYAML
	}

	node, err := state.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.ws.RestoreState(node)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleAddTask handles POST /plan/tasks.
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	msg, err := s.ws.AddTask(req.Description, req.ParentID, req.Notes)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msg})
}

// handleUpdateTask handles PATCH /plan/tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := s.ws.UpdateTask(r.PathValue("id"), plan.Update{
		Status:      plan.Status(req.Status),
		Description: req.Description,
		Notes:       req.Notes,
		Result:      req.Result,
	})
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// handleListCheckpoints handles GET /checkpoints.
func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	list := s.ws.ListCheckpoints()
	if list == nil {
		list = []checkpoint.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateCheckpoint handles POST /checkpoints.
func (s *Server) handleCreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req createCheckpointRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.ws.CreateCheckpoint(req.Name, req.Description)
	if err != nil {
		writePlanError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createCheckpointResponse{
		ID:      id,
		Message: "Created checkpoint " + id,
	})
}

// handleGetCheckpoint handles GET /checkpoints/{id}.
func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cp, ok := s.ws.Checkpoint(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Checkpoint not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// handleRestoreCheckpoint handles POST /checkpoints/restore.
func (s *Server) handleRestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req restoreCheckpointRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.ws.RestoreCheckpoint(req.CheckpointID, req.Description))
}

// handleClearCheckpoints handles DELETE /checkpoints.
func (s *Server) handleClearCheckpoints(w http.ResponseWriter, r *http.Request) {
	s.ws.ClearCheckpoints()
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writePlanError maps workspace errors onto HTTP status codes.
func writePlanError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, plan.ErrNoActivePlan):
		status = http.StatusConflict
	case errors.Is(err, plan.ErrTaskNotFound), errors.Is(err, plan.ErrParentNotFound):
		status = http.StatusNotFound
	}
	writeError(w, status, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// clientIP returns the remote host of r without its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
