// Package tools exposes a workspace to agents as MCP tools.
//
// Each tool maps onto one workspace operation. Rejections from the plan
// store come back as tool errors so the calling model can read and correct
// them; they never abort the MCP session.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/thruflo/plantree/internal/plan"
	"github.com/thruflo/plantree/internal/state"
	"github.com/thruflo/plantree/internal/workspace"
)

// Tools holds the handlers for every plantree tool.
type Tools struct {
	ws  *workspace.Workspace
	now func() time.Time
}

// New creates the tool handlers for ws.
func New(ws *workspace.Workspace) *Tools {
	return &Tools{ws: ws, now: time.Now}
}

// NewServer creates an MCP server with every tool registered.
func NewServer(ws *workspace.Workspace, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"plantree",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	New(ws).Register(s)
	return s
}

// Register adds every tool to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(createPlanTool(), t.CreatePlan)
	s.AddTool(addTaskTool(), t.AddTask)
	s.AddTool(updateTaskTool(), t.UpdateTask)
	s.AddTool(getPlanTool(), t.GetPlan)
	s.AddTool(getPlanStateTool(), t.GetPlanState)
	s.AddTool(createCheckpointTool(), t.CreateCheckpoint)
	s.AddTool(listCheckpointsTool(), t.ListCheckpoints)
	s.AddTool(restoreCheckpointTool(), t.RestoreCheckpoint)
	s.AddTool(clearCheckpointsTool(), t.ClearCheckpoints)
}

const instructions = `plantree keeps one hierarchical plan for the current task.
Call create_plan with the overall goal, break it down with add_task, and keep
statuses current with update_task. Take a create_checkpoint before risky
steps; restore_checkpoint rolls the plan back by id or by a short description.`

func createPlanTool() mcp.Tool {
	return mcp.NewTool("create_plan",
		mcp.WithDescription("Start a new plan, replacing the current one. The goal becomes root task 1."),
		mcp.WithString("goal", mcp.Required(), mcp.Description("Overall goal of the plan")),
	)
}

func addTaskTool() mcp.Tool {
	return mcp.NewTool("add_task",
		mcp.WithDescription("Add a pending task to the plan."),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the task does")),
		mcp.WithString("parent_id", mcp.Description("Parent task id; defaults to the root task")),
		mcp.WithString("notes", mcp.Description("Initial notes")),
	)
}

func updateTaskTool() mcp.Tool {
	statuses := make([]string, len(plan.Statuses))
	for i, s := range plan.Statuses {
		statuses[i] = string(s)
	}
	return mcp.NewTool("update_task",
		mcp.WithDescription("Update a task. Notes are appended to existing notes."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Id of the task to update")),
		mcp.WithString("status", mcp.Enum(statuses...), mcp.Description("New status")),
		mcp.WithString("description", mcp.Description("Replacement description")),
		mcp.WithString("notes", mcp.Description("Notes to append")),
		mcp.WithString("result", mcp.Description("Outcome of the task")),
	)
}

func getPlanTool() mcp.Tool {
	return mcp.NewTool("get_plan",
		mcp.WithDescription("Show the plan as an indented tree with a progress summary."),
	)
}

func getPlanStateTool() mcp.Tool {
	return mcp.NewTool("get_plan_state",
		mcp.WithDescription("Export the plan as a nested JSON snapshot."),
	)
}

func createCheckpointTool() mcp.Tool {
	return mcp.NewTool("create_checkpoint",
		mcp.WithDescription("Save a snapshot of the current plan."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Short name for the checkpoint")),
		mcp.WithString("description", mcp.Description("What state the plan is in")),
	)
}

func listCheckpointsTool() mcp.Tool {
	return mcp.NewTool("list_checkpoints",
		mcp.WithDescription("List saved checkpoints, oldest first."),
	)
}

func restoreCheckpointTool() mcp.Tool {
	return mcp.NewTool("restore_checkpoint",
		mcp.WithDescription("Replace the plan with a checkpoint, chosen by exact id or by the best match for a description."),
		mcp.WithString("checkpoint_id", mcp.Description("Checkpoint id such as cp_1")),
		mcp.WithString("description", mcp.Description("Words describing the checkpoint, used when no id is given")),
	)
}

func clearCheckpointsTool() mcp.Tool {
	return mcp.NewTool("clear_checkpoints",
		mcp.WithDescription("Delete every checkpoint and restart numbering at cp_1."),
	)
}

// CreatePlan handles create_plan.
func (t *Tools) CreatePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal, err := request.RequireString("goal")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(t.ws.CreatePlan(goal))
}

// AddTask handles add_task.
func (t *Tools) AddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(t.ws.AddTask(
		description,
		request.GetString("parent_id", ""),
		request.GetString("notes", ""),
	))
}

// UpdateTask handles update_task.
func (t *Tools) UpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(t.ws.UpdateTask(id, plan.Update{
		Status:      plan.Status(request.GetString("status", "")),
		Description: request.GetString("description", ""),
		Notes:       request.GetString("notes", ""),
		Result:      request.GetString("result", ""),
	}))
}

// GetPlan handles get_plan.
func (t *Tools) GetPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := t.ws.FormatPlan()
	if p := t.ws.Progress(); p.Total > 0 {
		text += "\n\nProgress: " + p.String()
	}
	return mcp.NewToolResultText(text), nil
}

// GetPlanState handles get_plan_state.
func (t *Tools) GetPlanState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := state.Marshal(t.ws.PlanState(), state.FormatJSON)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(strings.TrimSpace(string(data))), nil
}

// CreateCheckpoint handles create_checkpoint.
func (t *Tools) CreateCheckpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := t.ws.CreateCheckpoint(name, request.GetString("description", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created checkpoint %s: %s", id, name)), nil
}

// ListCheckpoints handles list_checkpoints.
func (t *Tools) ListCheckpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := t.ws.ListCheckpoints()
	if len(list) == 0 {
		return mcp.NewToolResultText("No checkpoints."), nil
	}

	now := t.now()
	var b strings.Builder
	for i, cp := range list {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", cp.ID, cp.Name)
		if cp.Description != "" {
			fmt.Fprintf(&b, " - %s", cp.Description)
		}
		fmt.Fprintf(&b, " (%s)", humanize.RelTime(cp.Timestamp, now, "ago", "from now"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// RestoreCheckpoint handles restore_checkpoint.
func (t *Tools) RestoreCheckpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.ws.RestoreCheckpoint(
		request.GetString("checkpoint_id", ""),
		request.GetString("description", ""),
	)
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return mcp.NewToolResultText(res.Message), nil
}

// ClearCheckpoints handles clear_checkpoints.
func (t *Tools) ClearCheckpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.ws.ClearCheckpoints()
	return mcp.NewToolResultText("Cleared all checkpoints."), nil
}

// result converts a workspace (message, error) pair into a tool result.
func result(msg string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}
