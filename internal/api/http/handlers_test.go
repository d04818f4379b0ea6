package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openautomata/windrive/internal/domain/activation"
	"github.com/openautomata/windrive/internal/domain/catalog"
	"github.com/openautomata/windrive/internal/domain/element"
	"github.com/openautomata/windrive/internal/domain/session"
	"github.com/openautomata/windrive/internal/driver/sim"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	sim    *sim.Sim
}

func newTestServer(t *testing.T, opts ...sim.Option) *testServer {
	t.Helper()

	drv := sim.New(opts...)
	registry := session.NewRegistry(nil)
	coordinator := session.NewCoordinator(registry, drv, nil)
	resolver := element.NewResolver(registry, coordinator, drv, nil)
	engine := activation.NewEngine(registry, coordinator, resolver, drv, drv, activation.Settings{
		MaxAttempts: 5,
		ShortWait:   2 * time.Millisecond,
		MediumWait:  5 * time.Millisecond,
		LongWait:    10 * time.Millisecond,
	}, nil)
	cat := catalog.New(nil)
	cat.SeedDefaults()

	handlers := NewHandlers(registry, coordinator, resolver, engine, cat, drv, nil, SessionDefaults{
		Timeout:     time.Second,
		AutoRecover: true,
	}, nil)

	router := gin.New()
	handlers.Register(router)
	return &testServer{router: router, sim: drv}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (ts *testServer) createSession(t *testing.T) string {
	t.Helper()
	w, out := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return out["session_id"].(string)
}

const nineXPath = `//Window[@Name="Calculator"]/Pane[@Name="Keypad"]/Button[@Name="Nine"]`

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, out := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", out["status"])
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w, out := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"timeout_ms":   2500,
		"auto_recover": false,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := out["session_id"].(string)
	assert.EqualValues(t, 2500, out["timeout_ms"])
	assert.Equal(t, false, out["auto_recover"])

	w, out = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["has_snapshot"])

	w, _ = ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "destroy is not idempotent")

	w, _ = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionDefaults(t *testing.T) {
	ts := newTestServer(t)
	w, out := ts.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 1000, out["timeout_ms"])
	assert.Equal(t, true, out["auto_recover"])
}

func TestSetRecovery(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPut, "/sessions/"+id+"/recovery", map[string]any{"auto_recover": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["auto_recover"])

	w, _ = ts.do(t, http.MethodPut, "/sessions/"+id+"/recovery", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, out["nodes"].(float64), float64(1))

	w, out = ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["has_snapshot"])
}

func TestRefreshTimeout(t *testing.T) {
	ts := newTestServer(t, sim.WithCollectDelay(time.Second))

	w, out := ts.do(t, http.MethodPost, "/sessions", map[string]any{"timeout_ms": 50})
	require.Equal(t, http.StatusCreated, w.Code)
	id := out["session_id"].(string)

	start := time.Now()
	w, _ = ts.do(t, http.MethodPost, "/sessions/"+id+"/refresh", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestElementByXPath(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/elements/xpath", map[string]any{
		"xpath": nineXPath,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Nine", out["name"])
	handle := out["handle"].(map[string]any)
	assert.Equal(t, nineXPath, handle["xpath"])
	assert.NotEmpty(t, handle["runtime_id"])
}

func TestElementByXPathMalformed(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/elements/xpath", map[string]any{
		"xpath": "/Window[@Name=",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestElementAt(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	// Hit-testing works against the latest collection.
	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/elements/at", map[string]any{
		"x": 300, "y": 200,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Nine", out["name"])
	handle := out["handle"].(map[string]any)
	assert.Contains(t, handle["xpath"], `Button[@Name="Nine"]`)
}

func TestResolveSurvivesWindowRecreation(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/elements/xpath", map[string]any{
		"xpath": nineXPath,
	})
	require.Equal(t, http.StatusOK, w.Code)
	handle := out["handle"].(map[string]any)
	oldID := handle["runtime_id"]

	// Close and reopen: the next collection renumbers every runtime id.
	// Refreshing swaps in a snapshot where the cached id no longer exists.
	ts.sim.CloseApp("calc.exe")
	ts.sim.OpenApp("calc.exe")
	w, _ = ts.do(t, http.MethodPost, "/sessions/"+id+"/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = ts.do(t, http.MethodPost, "/sessions/"+id+"/resolve", map[string]any{
		"xpath":      handle["xpath"],
		"runtime_id": handle["runtime_id"],
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	elem := out["element"].(map[string]any)
	assert.Equal(t, "Nine", elem["name"])
	assert.Equal(t, nineXPath, elem["xpath"], "xpath never changes")
	assert.NotEqual(t, oldID, elem["runtime_id"], "runtime id renumbered after recreation")
}

func TestResolveWithoutRecovery(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")

	w, out := ts.do(t, http.MethodPost, "/sessions", map[string]any{"auto_recover": false})
	require.Equal(t, http.StatusCreated, w.Code)
	id := out["session_id"].(string)

	w, _ = ts.do(t, http.MethodPost, "/sessions/"+id+"/resolve", map[string]any{
		"xpath":      nineXPath,
		"runtime_id": []int32{42, 1, 1},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActClick(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/act", map[string]any{
		"xpath":  nineXPath,
		"action": "click",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "click", out["performed"])
}

func TestActUnknownAction(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/act", map[string]any{
		"xpath":  nineXPath,
		"action": "levitate",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivateByCatalogName(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/activate", map[string]any{
		"app": "calculator",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["activated"])
	assert.Equal(t, true, out["launched"])
	assert.Equal(t, "done_ok", out["state"])
}

func TestActivateExplicitPath(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("notepad.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/activate", map[string]any{
		"path":  "notepad.exe",
		"xpath": `//Window[@Name="Untitled - Notepad"]`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["activated"])
	assert.Equal(t, false, out["launched"], "window was already open")
}

func TestActivateUnknownApp(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/activate", map[string]any{"app": "solitaire"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivateLaunchFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)

	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/activate", map[string]any{
		"path":  "missing.exe",
		"xpath": `//Window[@Name="Missing"]`,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestQuery(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, out := ts.do(t, http.MethodPost, "/sessions/"+id+"/query", map[string]any{
		"expr": "//Button",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 5, out["count"])

	matches := out["matches"].([]any)
	first := matches[0].(map[string]any)
	assert.Equal(t, "Seven", first["name"])
	assert.Contains(t, first["xpath"], `Button[@Name="Seven"]`)
}

func TestQueryBadExpression(t *testing.T) {
	ts := newTestServer(t)
	ts.sim.OpenApp("calc.exe")
	id := ts.createSession(t)

	w, _ := ts.do(t, http.MethodPost, "/sessions/"+id+"/query", map[string]any{
		"expr": "//Button[",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScreen(t *testing.T) {
	ts := newTestServer(t)
	w, out := ts.do(t, http.MethodGet, "/screen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1920, out["width"])
	assert.EqualValues(t, 1080, out["height"])
	assert.EqualValues(t, 1.25, out["scale"])
}

func TestApps(t *testing.T) {
	ts := newTestServer(t)
	w, out := ts.do(t, http.MethodGet, "/apps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	apps := out["apps"].([]any)
	assert.Len(t, apps, 2)
}

func TestUnknownSessionEverywhere(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/sessions/sess_missing", nil},
		{http.MethodPost, "/sessions/sess_missing/refresh", nil},
		{http.MethodPost, "/sessions/sess_missing/resolve", map[string]any{"xpath": nineXPath}},
		{http.MethodPost, "/sessions/sess_missing/elements/xpath", map[string]any{"xpath": nineXPath}},
		{http.MethodPost, "/sessions/sess_missing/elements/at", map[string]any{"x": 1, "y": 1}},
	} {
		w, _ := ts.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, fmt.Sprintf("%s %s", tc.method, tc.path))
	}
}
