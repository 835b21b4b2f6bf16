//go:build e2e

// cli_harness_test.go provides a test harness for E2E testing of the plantree
// CLI. The harness builds the binary once per test and runs commands in an
// isolated workspace directory.
package integration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// CLIHarness manages a plantree binary for E2E testing.
type CLIHarness struct {
	// BinaryPath is the path to the built plantree binary.
	BinaryPath string

	// WorkDir is the working directory where commands will be executed.
	WorkDir string

	t *testing.T
}

// CLIResult contains the output from a CLI command execution.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Success returns true if the command completed with exit code 0.
func (r *CLIResult) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// NewCLIHarness builds the plantree binary and creates a test workspace.
func NewCLIHarness(t *testing.T) *CLIHarness {
	t.Helper()

	projectRoot := findProjectRoot(t)
	require.NotEmpty(t, projectRoot, "could not find project root (directory containing go.mod)")

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "plantree")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/plantree")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build plantree binary: %s", output)

	workDir := filepath.Join(tmpDir, "workspace")
	require.NoError(t, os.MkdirAll(filepath.Join(workDir, ".plantree"), 0755))

	return &CLIHarness{
		BinaryPath: binaryPath,
		WorkDir:    workDir,
		t:          t,
	}
}

// Run executes a plantree command with a 30 second timeout.
func (h *CLIHarness) Run(args ...string) *CLIResult {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return h.RunWithInput(ctx, nil, args...)
}

// RunWithInput executes a plantree command with stdin connected to input.
func (h *CLIHarness) RunWithInput(ctx context.Context, input io.Reader, args ...string) *CLIResult {
	h.t.Helper()

	cmd := exec.CommandContext(ctx, h.BinaryPath, args...)
	cmd.Dir = h.WorkDir
	cmd.Stdin = input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CLIResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.Err = err
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}
	return result
}

// Start launches a long-running plantree command. The process is killed
// when the test ends.
func (h *CLIHarness) Start(args ...string) (*exec.Cmd, *bytes.Buffer) {
	h.t.Helper()

	cmd := exec.Command(h.BinaryPath, args...)
	cmd.Dir = h.WorkDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	require.NoError(h.t, cmd.Start())

	h.t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd, &output
}

// WriteFile writes content to a file in the workspace and returns its path.
func (h *CLIHarness) WriteFile(relativePath, content string) string {
	h.t.Helper()
	path := filepath.Join(h.WorkDir, relativePath)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// RequireSuccess fails the test if the command result indicates failure.
func (h *CLIHarness) RequireSuccess(result *CLIResult, msg string) {
	h.t.Helper()
	if !result.Success() {
		h.t.Fatalf("%s: exit=%d err=%v\nstdout: %s\nstderr: %s",
			msg, result.ExitCode, result.Err, result.Stdout, result.Stderr)
	}
}

// RequireFailure fails the test if the command result indicates success.
func (h *CLIHarness) RequireFailure(result *CLIResult, msg string) {
	h.t.Helper()
	if result.Success() {
		h.t.Fatalf("%s: command succeeded unexpectedly\nstdout: %s\nstderr: %s",
			msg, result.Stdout, result.Stderr)
	}
}

// findProjectRoot walks up from the current directory to the directory
// holding go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
