package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/thruflo/plantree/internal/logging"
	"github.com/thruflo/plantree/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the plan as MCP tools on stdio",
	Long: `Runs an MCP server on stdin/stdout exposing create_plan, add_task,
update_task, get_plan, get_plan_state and the checkpoint tools.

Logs go to stderr so they never corrupt the protocol stream.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := tools.NewServer(newWorkspace(cfg), Version)
	logging.Info("serving MCP on stdio", "version", Version)
	return server.ServeStdio(s)
}
