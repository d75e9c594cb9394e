package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
	"github.com/matzehuels/prereqgraph/pkg/graph"
	"github.com/matzehuels/prereqgraph/pkg/layout"
	"github.com/matzehuels/prereqgraph/pkg/metrics"
	"github.com/matzehuels/prereqgraph/pkg/pipeline"
	"github.com/matzehuels/prereqgraph/pkg/session"
)

const testPayload = `{
	"CSCI_nodes": [
		{"course_uid": "CSCI-1100", "prereq_formula": [], "coreq_formula": []},
		{"course_uid": "CSCI-1200", "prereq_formula": ["CSCI-1100"], "coreq_formula": []},
		{"course_uid": "CSCI-2300", "prereq_formula": ["CSCI-1200"], "coreq_formula": ["CSCI-1100"]},
		{"course_uid": "CSCI-4430", "prereq_formula": [], "coreq_formula": []}
	],
	"meta_nodes": []
}`

type testEnv struct {
	srv     *Server
	api     *httptest.Server
	store   session.Store
	runner  *pipeline.Runner
	input   string
	metrics *metrics.Registry
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// newTestEnv starts a payload server and an API server. The tick interval
// is long enough that only explicit requests advance the simulation.
func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	payload := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, testPayload)
	}))
	t.Cleanup(payload.Close)

	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	env := &testEnv{
		store:   session.NewMemoryStore(),
		runner:  pipeline.NewRunner(nil, nil, quietLogger()),
		input:   payload.URL + "/prereq.json",
		metrics: metrics.NewRegistry(),
	}
	env.start(t, cfg)
	return env
}

func (env *testEnv) start(t *testing.T, cfg Config) {
	t.Helper()
	env.srv = New(cfg, env.runner, env.store, env.metrics, quietLogger())
	env.api = httptest.NewServer(env.srv.Handler())
	t.Cleanup(func() {
		env.api.Close()
		env.srv.Close()
	})
}

// restart simulates a process restart that keeps the session store.
func (env *testEnv) restart(t *testing.T) {
	t.Helper()
	env.api.Close()
	env.srv.Close()
	env.start(t, Config{TickInterval: time.Hour})
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, env.api.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (env *testEnv) create(t *testing.T) SessionResponse {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]any{"input": env.input, "seed": 7})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[SessionResponse](t, resp)
}

func columnOf(t *testing.T, l graph.Layout, id string) int {
	t.Helper()
	n, ok := l.NodeByID(id)
	require.True(t, ok, "node %s missing", id)
	return n.Column
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "build")
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	require.NoError(t, session.ValidateID(created.ID))
	assert.Equal(t, "CSCI", created.Layout.Department)
	assert.Len(t, created.Layout.Nodes, 4)
	assert.Zero(t, created.Layout.Ticks)
	assert.Equal(t, 0, columnOf(t, created.Layout, "CSCI-1100"))
	assert.Equal(t, 2, columnOf(t, created.Layout, "CSCI-2300"))

	rec, err := env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, uint64(7), rec.Options.Seed)

	list := decode[map[string][]SessionInfo](t, env.do(t, http.MethodGet, "/api/sessions", nil))
	require.Len(t, list["sessions"], 1)
	assert.Equal(t, created.ID, list["sessions"][0].ID)
	assert.Equal(t, 4, list["sessions"][0].Nodes)
}

func TestCreateSessionRejections(t *testing.T) {
	env := newTestEnv(t, Config{MaxSessions: 1})

	tests := []struct {
		name   string
		body   string
		status int
		code   perrors.Code
	}{
		{"Unknown field", `{"bogus": 1}`, http.StatusBadRequest, perrors.ErrCodeInvalidInput},
		{"Local file", `{"input": "/etc/passwd"}`, http.StatusBadRequest, perrors.ErrCodeInvalidInput},
		{"Bad options", `{"input": "` + env.input + `", "engine": "neato"}`, http.StatusBadRequest, perrors.ErrCodeInvalidConfig},
		{"Bad department", `{"input": "` + env.input + `", "department": "C5"}`, http.StatusBadRequest, perrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(env.api.URL+"/api/sessions", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[ErrorBody](t, resp)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}

	env.create(t)
	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]any{"input": env.input})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestGetUnknownSession(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, id := range []string{"not-a-uuid", "0b4f5b8e-3c1a-4d7e-9f2a-6b5c4d3e2f10"} {
		resp := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
		body := decode[ErrorBody](t, resp)
		assert.Equal(t, perrors.ErrCodeSessionNotFound, body.Error.Code)
	}
}

func TestTicks(t *testing.T) {
	env := newTestEnv(t, Config{MaxTicksPerRequest: 50})
	created := env.create(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/ticks", TickRequest{Count: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[TickResponse](t, resp)
	assert.Equal(t, 10, got.Ran)
	assert.Equal(t, 10, got.Layout.Ticks)

	// An empty body runs a single tick.
	resp = env.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/ticks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11, decode[TickResponse](t, resp).Layout.Ticks)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/ticks", TickRequest{Count: 51})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTicksKeepNodesInTheirBands(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/ticks", TickRequest{Count: 200})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := decode[TickResponse](t, resp).Layout

	b := layout.DefaultBounds()
	for _, n := range l.Nodes {
		lo, hi := b.Band(n.Column)
		assert.GreaterOrEqual(t, n.X, lo, n.ID)
		assert.LessOrEqual(t, n.X, hi, n.ID)
	}
}

func TestDragCommitsColumnAndSurvivesRestart(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)
	path := "/api/sessions/" + created.ID + "/nodes/CSCI-4430/drag"

	n, _ := created.Layout.NodeByID("CSCI-4430")
	target := layout.DefaultBounds().ColumnCenter(0)

	resp := env.do(t, http.MethodPost, path, DragRequest{Phase: PhaseStart, X: n.X, Y: n.Y})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[DragResponse](t, resp)
	dragged, _ := started.Layout.NodeByID("CSCI-4430")
	assert.True(t, dragged.Dragging)
	assert.True(t, started.Layout.Active)

	resp = env.do(t, http.MethodPost, path, DragRequest{Phase: PhaseStart, X: n.X, Y: n.Y})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, DragRequest{Phase: PhaseMove, X: target, Y: n.Y})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, DragRequest{Phase: PhaseEnd, X: target, Y: n.Y})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ended := decode[DragResponse](t, resp)
	require.NotNil(t, ended.Column)
	assert.Equal(t, 0, *ended.Column)
	assert.Equal(t, 0, columnOf(t, ended.Layout, "CSCI-4430"))

	rec, err := env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"CSCI-4430": 0}, rec.Placements)

	env.restart(t)
	resp = env.do(t, http.MethodGet, "/api/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	restored := decode[SessionResponse](t, resp)
	assert.Equal(t, 0, columnOf(t, restored.Layout, "CSCI-4430"))
	assert.Equal(t, 2, columnOf(t, restored.Layout, "CSCI-2300"))
}

// slowStore delays reads so that overlapping record updates interleave.
type slowStore struct {
	session.Store
	delay time.Duration
}

func (s slowStore) Get(ctx context.Context, id string) (*session.Session, error) {
	time.Sleep(s.delay)
	return s.Store.Get(ctx, id)
}

func TestConcurrentDragEndsKeepEveryPlacement(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.store = slowStore{Store: env.store, delay: 50 * time.Millisecond}
	env.restart(t)

	created := env.create(t)
	base := env.api.URL + "/api/sessions/" + created.ID + "/nodes/"
	nodes := []string{"CSCI-1100", "CSCI-1200"}
	for _, id := range nodes {
		n, _ := created.Layout.NodeByID(id)
		resp := env.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/nodes/"+id+"/drag",
			DragRequest{Phase: PhaseStart, X: n.X, Y: n.Y})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	codes := make([]int, len(nodes))
	errs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, id := range nodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(DragRequest{Phase: PhaseEnd, X: 1000, Y: 100})
			resp, err := http.Post(base+id+"/drag", "application/json", bytes.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			codes[i] = resp.StatusCode
		}()
	}
	wg.Wait()
	for i, id := range nodes {
		require.NoError(t, errs[i], id)
		assert.Equal(t, http.StatusOK, codes[i], id)
	}

	rec, err := env.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Placements, len(nodes))
	for _, id := range nodes {
		assert.Contains(t, rec.Placements, id)
	}
}

func TestDragErrors(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)
	base := "/api/sessions/" + created.ID + "/nodes/"

	tests := []struct {
		name   string
		node   string
		req    DragRequest
		status int
	}{
		{"Unknown node", "CSCI-9999", DragRequest{Phase: PhaseStart}, http.StatusNotFound},
		{"Move before start", "CSCI-1100", DragRequest{Phase: PhaseMove}, http.StatusConflict},
		{"End before start", "CSCI-1100", DragRequest{Phase: PhaseEnd}, http.StatusConflict},
		{"Unknown phase", "CSCI-1100", DragRequest{Phase: "hover"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, base+tt.node+"/drag", tt.req)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	resp := env.do(t, http.MethodDelete, "/api/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvictIdleRestoresOnDemand(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	assert.Equal(t, 1, env.srv.evictIdle(time.Now().Add(time.Minute)))
	assert.Empty(t, env.srv.list())

	resp := env.do(t, http.MethodGet, "/api/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, env.srv.list(), 1)
}

func TestSVG(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	resp := env.do(t, http.MethodGet, "/api/sessions/"+created.ID+"/svg?columns=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<svg")
	assert.Contains(t, string(body), "CSCI-1100")

	resp = env.do(t, http.MethodGet, "/api/sessions/"+created.ID+"/svg?engine=neato", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.create(t)

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "prereqgraph_http_requests_total")
	assert.Contains(t, string(body), `status="201"`)
	assert.Contains(t, string(body), "prereqgraph_sessions_active 1")
}

func TestStream(t *testing.T) {
	env := newTestEnv(t, Config{})
	created := env.create(t)

	url := "ws" + strings.TrimPrefix(env.api.URL, "http") + "/api/sessions/" + created.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameSnapshot, f.Type)
	assert.Len(t, f.Layout.Nodes, 4)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "tick", Count: 3}))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameTick, f.Type)
	assert.Equal(t, 3, f.Layout.Ticks)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "drag", Node: "CSCI-9999", Phase: PhaseStart}))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameError, f.Type)
	require.NotNil(t, f.Error)
	assert.Equal(t, perrors.ErrCodeNotFound, f.Error.Code)

	// Deleting the session closes the stream.
	resp := env.do(t, http.MethodDelete, "/api/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
