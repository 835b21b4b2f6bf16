package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/thruflo/plantree/internal/auth"
	"github.com/thruflo/plantree/internal/config"
)

var hashPasswordSave bool

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Create a password hash for the HTTP API",
	Long: `Prompts for a password twice without echo and prints its argon2id hash.

Put the hash in server.password_hash in .plantree/config.yaml, or pass --save
to write it there directly.`,
	Args: cobra.NoArgs,
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().BoolVar(&hashPasswordSave, "save", false, "store the hash in .plantree/config.yaml")
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	password, err := auth.ReadNewPassword(cmd.ErrOrStderr(), int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("password setup failed: %w", err)
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if !hashPasswordSave {
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	}

	if err := savePasswordHash(baseDir, hash); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password saved to %s\n", config.Path(baseDir))
	return nil
}

// savePasswordHash stores hash in the config under base, keeping every
// other setting.
func savePasswordHash(base, hash string) error {
	cfg, err := config.LoadConfig(base)
	if err != nil {
		return err
	}
	cfg.Server.PasswordHash = hash
	if err := config.SaveConfig(base, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
