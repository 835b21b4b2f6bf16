package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestDir creates a temporary directory with an empty .plantree
// directory. It is removed when the test completes.
func SetupTestDir(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".plantree"), 0755))
	return tmpDir
}

// WriteConfig writes content to .plantree/config.yaml under basePath.
func WriteConfig(t *testing.T, basePath, content string) {
	t.Helper()
	WriteTestFile(t, basePath, filepath.Join(".plantree", "config.yaml"), []byte(content))
}

// MustMarshalJSON marshals a value to JSON, failing the test on error.
// Uses indented format for readability.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return data
}

// MustUnmarshalJSON unmarshals JSON data into v, failing the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

// WriteTestFile writes content to a file in the test directory and returns
// its full path. Creates parent directories as needed.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) string {
	t.Helper()
	fullPath := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, content, 0644))
	return fullPath
}
