package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thruflo/plantree/internal/server"
	"github.com/thruflo/plantree/web"
	"golang.org/x/sync/errgroup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the plan over HTTP",
	Long: `Starts the HTTP API and dashboard for a fresh, empty plan.

If server.password_hash is set in .plantree/config.yaml, clients must first
exchange the password for a bearer token at POST /auth. Create a hash with
plantree hash-password. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	srv, err := server.NewServerFromConfig(newWorkspace(cfg), &cfg.Server, web.GetAssetsWithBase(baseDir))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop()
	})

	fmt.Fprintf(cmd.OutOrStdout(), "plantree listening on http://localhost:%d\n", cfg.Server.Port)
	if !srv.AuthEnabled() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no password configured, the API is open to anyone who can reach it.")
	}

	return g.Wait()
}
