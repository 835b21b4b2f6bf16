package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/plantree/internal/auth"
	"github.com/thruflo/plantree/internal/checkpoint"
	"github.com/thruflo/plantree/internal/plan"
	"github.com/thruflo/plantree/internal/testutil"
	"github.com/thruflo/plantree/internal/workspace"
)

func newTestServer(t *testing.T, passwordHash string) (*Server, *workspace.Workspace) {
	t.Helper()

	ws := workspace.New(workspace.Options{})
	s, err := NewServer(ws, &Config{
		PasswordHash: passwordHash,
		Assets:       fstest.MapFS{"index.html": {Data: []byte("<h1>plantree</h1>")}},
	})
	require.NoError(t, err)
	return s, ws
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil, &Config{})
	assert.Error(t, err)

	_, err = NewServer(workspace.New(workspace.Options{}), nil)
	assert.Error(t, err)

	_, err = NewServerFromConfig(workspace.New(workspace.Options{}), nil, nil)
	assert.Error(t, err)
}

func TestServer_PlanLifecycle(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, "")
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/plan", `{"goal":"Build X"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `Created plan "Build X" with root task 1`, decode[messageResponse](t, rec).Message)

	rec = do(t, h, http.MethodPost, "/plan/tasks", `{"description":"Step A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Added task 2 under 1: Step A", decode[messageResponse](t, rec).Message)

	rec = do(t, h, http.MethodPatch, "/plan/tasks/2", `{"status":"completed","result":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated task 2 (completed)", decode[messageResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	node := decode[plan.TaskNode](t, rec)
	assert.Equal(t, "Build X", node.Description)
	require.Len(t, node.Subtasks, 1)
	assert.Equal(t, plan.StatusCompleted, node.Subtasks[0].Status)

	rec = do(t, h, http.MethodGet, "/plan?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "description: Build X")

	rec = do(t, h, http.MethodGet, "/plan?format=text", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "✅ [2] Step A (completed)")

	rec = do(t, h, http.MethodGet, "/plan?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PlanErrors(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, "")
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error":"No plan active"}`, rec.Body.String())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"add before plan", http.MethodPost, "/plan/tasks", `{"description":"x"}`, http.StatusConflict},
		{"empty goal", http.MethodPost, "/plan", `{"goal":"  "}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/plan", `{"goal":`, http.StatusBadRequest},
		{"empty description", http.MethodPost, "/plan/tasks", `{"description":""}`, http.StatusBadRequest},
		{"unknown task", http.MethodPatch, "/plan/tasks/99", `{"status":"completed"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.path, tt.body)
		assert.Equal(t, tt.want, rec.Code, tt.name)
		assert.NotEmpty(t, decode[map[string]string](t, rec)["error"], tt.name)
	}

	rec = do(t, h, http.MethodPost, "/plan", `{"goal":"g"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/plan/tasks", `{"description":"x","parent_id":"42"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/plan/tasks/1", `{"status":"blocked"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "invalid task status")
}

func TestServer_RestoreState(t *testing.T) {
	t.Parallel()

	s, ws := newTestServer(t, "")
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/plan/state",
		`{"id":"1","description":"goal","status":"pending","subtasks":[{"id":"5","description":"child","status":"failed"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Restored 2 tasks", decode[messageResponse](t, rec).Message)
	assert.Equal(t, 2, ws.PlanState().Count())

	yamlDoc := "id: \"1\"\ndescription: from yaml\nstatus: in_progress\n"
	rec = do(t, h, http.MethodPut, "/plan/state", yamlDoc, "Content-Type", "application/yaml")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "from yaml", ws.PlanState().Description)

	rec = do(t, h, http.MethodPut, "/plan/state", `{"id":"1","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/plan/state", `{"error":"No plan active"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "from yaml", ws.PlanState().Description)
}

func TestServer_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s, ws := newTestServer(t, "")
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/plan/state", testutil.SampleTreeJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Restored 6 tasks", decode[messageResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[plan.TaskNode](t, rec)
	assert.Equal(t, testutil.SampleTree(), &got)

	// Ids continue after the highest restored id.
	rec = do(t, h, http.MethodPost, "/plan/tasks", `{"description":"Retro","parent_id":"3"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Added task 7 under 3: Retro", decode[messageResponse](t, rec).Message)
	testutil.AssertUniqueIDs(t, ws.PlanState())
}

func TestServer_Checkpoints(t *testing.T) {
	t.Parallel()

	s, ws := newTestServer(t, "")
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/checkpoints", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := ws.CreatePlan("Build X")
	require.NoError(t, err)

	rec = do(t, h, http.MethodPost, "/checkpoints", `{"name":"before database migration","description":"schema v1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "cp_1", decode[createCheckpointResponse](t, rec).ID)

	rec = do(t, h, http.MethodPost, "/checkpoints", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/checkpoints", "")
	list := decode[[]checkpoint.Summary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "before database migration", list[0].Name)

	rec = do(t, h, http.MethodGet, "/checkpoints/cp_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cp := decode[checkpoint.Checkpoint](t, rec)
	assert.Equal(t, "Build X", cp.State.Description)

	rec = do(t, h, http.MethodGet, "/checkpoints/cp_9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err = ws.AddTask("later", "", "")
	require.NoError(t, err)

	rec = do(t, h, http.MethodPost, "/checkpoints/restore", `{"description":"database migration"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[checkpoint.RestoreResult](t, rec)
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, "cp_1", res.CheckpointID)
	assert.Equal(t, 1, ws.PlanState().Count())

	rec = do(t, h, http.MethodPost, "/checkpoints/restore", `{"checkpoint_id":"cp_7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[checkpoint.RestoreResult](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "Checkpoint not found: cp_7", res.Message)

	rec = do(t, h, http.MethodDelete, "/checkpoints", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ws.ListCheckpoints())
}

func TestServer_Assets(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, "")
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "plantree")
}

func TestServer_Auth(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashWithParams("secret", auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	require.NoError(t, err)

	s, _ := newTestServer(t, hash)
	h := s.Handler()
	assert.True(t, s.AuthEnabled())

	rec := do(t, h, http.MethodGet, "/plan", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/plan", "", "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/plan", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth", `{"password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth", `{"password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[map[string]string](t, rec)["token"]
	require.NotEmpty(t, token)
	assert.True(t, s.ValidateToken(token))

	rec = do(t, h, http.MethodGet, "/plan", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The dashboard itself is public.
	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.RevokeToken(token)
	assert.False(t, s.ValidateToken(token))
	rec = do(t, h, http.MethodGet, "/plan", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_AuthDisabled(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, "")
	rec := do(t, s.Handler(), http.MethodPost, "/auth", `{"password":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_AuthRateLimit(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashWithParams("secret", auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	require.NoError(t, err)
	s, _ := newTestServer(t, hash)
	h := s.Handler()

	for i := 0; i < defaultMaxFailures; i++ {
		rec := do(t, h, http.MethodPost, "/auth", `{"password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i)
	}

	rec := do(t, h, http.MethodPost, "/auth", `{"password":"secret"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAuthLimiter(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	l := newAuthLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.blockedFor("a"))
	l.fail("a")
	assert.Zero(t, l.blockedFor("a"))
	l.fail("a")
	assert.Equal(t, time.Minute, l.blockedFor("a"))
	assert.Zero(t, l.blockedFor("b"))

	now = now.Add(61 * time.Second)
	assert.Zero(t, l.blockedFor("a"))

	l.sweep(now)
	assert.Empty(t, l.clients)

	l.fail("c")
	l.succeed("c")
	assert.Empty(t, l.clients)
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, "")
	assert.Equal(t, "", s.ListenAddr())
	assert.NoError(t, s.Stop())

	ctx, cancel := testutil.ShortOperationContext(t)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.ListenAddr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/plan", s.ListenAddr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Error(t, s.Start(ctx))

	require.NoError(t, s.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
