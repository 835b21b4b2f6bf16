package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thruflo/plantree/internal/checkpoint"
	"github.com/thruflo/plantree/internal/config"
	"github.com/thruflo/plantree/internal/logging"
	"github.com/thruflo/plantree/internal/workspace"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	baseDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "plantree",
	Short: "Hierarchical task plans with checkpoints for agents",
	Long: `plantree keeps a single hierarchical plan for an agent: a goal broken
into nested tasks with statuses, notes and results. Snapshots of the plan can
be saved as checkpoints and restored by id or by description.

The plan is served to agents over MCP (plantree mcp) or to anything that
speaks HTTP (plantree serve).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("plantree version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&baseDir, "dir", "C", ".", "directory containing .plantree/config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config under baseDir and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(baseDir)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	logging.SetLevel(parsed)

	return cfg, nil
}

// newWorkspace creates an empty workspace configured from cfg.
func newWorkspace(cfg *config.Config) *workspace.Workspace {
	return workspace.New(workspace.Options{
		Checkpoints: checkpoint.Options{
			MatchThreshold: cfg.Checkpoints.MatchThreshold,
		},
	})
}
