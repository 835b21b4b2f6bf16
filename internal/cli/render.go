package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/thruflo/plantree/internal/logging"
	"github.com/thruflo/plantree/internal/plan"
	"github.com/thruflo/plantree/internal/state"
	"golang.org/x/term"
)

var (
	renderWatch bool
	renderColor string
)

var renderCmd = &cobra.Command{
	Use:   "render <snapshot>",
	Short: "Print a saved plan snapshot as a tree",
	Long: `Decodes a plan snapshot (JSON, or YAML for .yaml/.yml files) as exported by
get_plan_state or GET /plan, validates it, and prints the task tree followed by
a progress summary.

With --watch, the tree is printed again every time the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "re-render when the snapshot changes")
	renderCmd.Flags().StringVar(&renderColor, "color", "auto", "colour output: auto, always or never")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]
	color, err := useColor(renderColor, os.Stdout)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := renderSnapshot(out, path, color); err != nil {
		return err
	}
	if !renderWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watchSnapshot(ctx, path, func() {
		fmt.Fprintln(out)
		if err := renderSnapshot(out, path, color); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	})
}

// useColor resolves a --color mode against the output file.
func useColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return f != nil && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("invalid --color %q: must be auto, always or never", mode)
}

// renderSnapshot loads the snapshot at path and writes its tree to w.
// Snapshots that would be rejected by a restore are rejected here too.
func renderSnapshot(w io.Writer, path string, color bool) error {
	node, err := state.LoadSnapshot(path)
	if err != nil {
		return err
	}
	if node.IsError() {
		fmt.Fprintln(w, plan.NoPlanText)
		return nil
	}

	store := plan.NewStore()
	if _, err := store.RestoreState(node); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	restored := store.GetPlanState()
	if color {
		fmt.Fprintln(w, plan.Styled(restored))
	} else {
		fmt.Fprintln(w, plan.Format(restored))
	}
	fmt.Fprintf(w, "\n%s\n", store.Progress())
	return nil
}

// watchSnapshot calls onChange whenever path is written or replaced, until
// ctx is cancelled. The parent directory is watched so that editors that
// save by renaming a temp file are still seen.
func watchSnapshot(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logging.Debug("snapshot changed", "event", event.Op.String(), "file", event.Name)
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("fsnotify error", "error", err)
		}
	}
}
