//go:build e2e

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/plantree/internal/testutil"
)

func TestE2E_Version(t *testing.T) {
	h := NewCLIHarness(t)

	result := h.Run("--version")
	h.RequireSuccess(result, "version")
	assert.Contains(t, result.Stdout, "plantree version")
}

func TestE2E_Render(t *testing.T) {
	h := NewCLIHarness(t)
	path := h.WriteFile("release.json", testutil.SampleTreeJSON)

	result := h.Run("render", path, "--color", "never")
	h.RequireSuccess(result, "render")
	assert.Contains(t, result.Stdout, "🔄 [1] Ship release 2.0 (in_progress)")
	assert.Contains(t, result.Stdout, "2/6 done (2 in_progress, 1 failed)")

	bad := h.WriteFile("bad.json", `{"id":"1","subtasks":[{"id":"1"}]}`)
	result = h.Run("render", bad)
	h.RequireFailure(result, "render duplicate ids")
	assert.Contains(t, result.Stderr, "duplicate task id")
}

func TestE2E_Serve(t *testing.T) {
	h := NewCLIHarness(t)
	port := freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	_, output := h.Start("serve", "--port", fmt.Sprint(port))

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/plan")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond, "server did not start: %s", output)

	post := func(path, body string) *http.Response {
		resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusCreated, post("/plan", `{"goal":"Build X"}`).StatusCode)
	assert.Equal(t, http.StatusCreated, post("/plan/tasks", `{"description":"Step A"}`).StatusCode)
	assert.Equal(t, http.StatusCreated, post("/checkpoints", `{"name":"cp1"}`).StatusCode)
	assert.Equal(t, http.StatusCreated, post("/plan/tasks", `{"description":"Step B"}`).StatusCode)

	resp := post("/checkpoints/restore", `{"checkpoint_id":"cp_1"}`)
	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success, res.Message)

	text, err := http.Get(base + "/plan?format=text")
	require.NoError(t, err)
	defer text.Body.Close()
	scanner := bufio.NewScanner(text.Body)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{"○ [1] Build X (pending)", "  ○ [2] Step A (pending)"}, lines)
}

func TestE2E_MCP(t *testing.T) {
	h := NewCLIHarness(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"e2e","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_plan","arguments":{"goal":"Build X"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_plan","arguments":{}}}`,
	}, "\n") + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result := h.RunWithInput(ctx, strings.NewReader(input), "mcp")

	assert.Contains(t, result.Stdout, `Created plan \"Build X\" with root task 1`)
	assert.Contains(t, result.Stdout, `○ [1] Build X (pending)`)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
