// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/api/middleware"
	"github.com/ManuGH/playcore/internal/backend/sim"
	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/engine"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/fsm"
	"github.com/ManuGH/playcore/internal/health"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/playlist"
	"github.com/ManuGH/playcore/internal/resolver"
)

// syncRunner runs engine work inline on a manual executor, serialized by a
// mutex so concurrent handlers behave like the real loop.
type syncRunner struct {
	mu  sync.Mutex
	m   *loop.Manual
	err error
}

func (r *syncRunner) Do(_ context.Context, fn func()) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
	r.m.RunPending()
	return nil
}

func (r *syncRunner) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.Advance(d)
}

type fixture struct {
	t      *testing.T
	runner *syncRunner
	srv    *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := loop.NewManual(time.Unix(0, 0))
	simCfg := sim.Config{Duration: 10, InitDelay: 100 * time.Millisecond, Tick: 250 * time.Millisecond}
	native := capability.NewStaticPlatform("native", []string{"video/mp4"}, nil)
	reg, err := capability.Build([]capability.Platform{native}, []capability.Model{{
		Name:     sim.ModelName,
		Supports: []capability.Support{{MimeType: "video/mp4", Platform: "native"}},
		Factory:  sim.Factory(m, simCfg),
	}}, nil)
	require.NoError(t, err)
	res := resolver.New(reg, resolver.Config{Platforms: []string{"native"}, Qualities: []string{"low", "high"}})
	eng := engine.New(context.Background(), m, reg, res, engine.DefaultConfig())

	runner := &syncRunner{m: m}
	srv, err := New(runner, eng, Options{
		Version: "test",
		Stack:   middleware.StackConfig{EnableMetrics: true},
	})
	require.NoError(t, err)
	return &fixture{t: t, runner: runner, srv: srv}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	_, w := f.exchange(method, path, body)
	return w
}

// exchange is do that also returns the request, for contract checks.
func (f *fixture) exchange(method, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return req, w
}

func (f *fixture) state() StateResponse {
	f.t.Helper()
	w := f.do(http.MethodGet, "/api/v1/state", "")
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var st StateResponse
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

const twoItems = `{"items":[
	{"files":[{"uri":"https://cdn.example/a.mp4","type":"video/mp4"}],"config":{"id":"a"}},
	{"files":[{"uri":"https://cdn.example/b.mp4","type":"video/mp4"}],"config":{"id":"b"}}
]}`

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var live health.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &live))
	assert.Equal(t, health.StatusHealthy, live.Status)
	assert.Equal(t, "test", live.Version)

	w = f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	f.runner.err = loop.ErrStopped
	w = f.do(http.MethodGet, "/readyz?verbose=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var ready health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, health.StatusUnhealthy, ready.Checks["loop"].Status)

	w = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code, "liveness does not depend on the loop")

	w = f.do(http.MethodGet, "/api/v1/state", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/api/v1/state", "")
	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "playcore_http_requests_total")
}

func TestItems(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/items", twoItems)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res playlist.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, []int{0, 1}, res.Indexes)

	w = f.do(http.MethodGet, "/api/v1/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ItemsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, 0, list.CurrentIndex)
	assert.Equal(t, sim.ModelName, list.Items[0].Model)

	st := f.state()
	assert.Equal(t, "IDLE", st.Lifecycle)
	require.NotNil(t, st.Current)
	assert.Equal(t, "a", st.Current.ID)

	w = f.do(http.MethodPut, "/api/v1/items/current", `{"selector":"next"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "b", f.state().Current.ID)

	w = f.do(http.MethodPut, "/api/v1/items/current", `{"selector":"next"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "next does not wrap")

	w = f.do(http.MethodDelete, "/api/v1/items/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/api/v1/items/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.state().CurrentIndex)

	w = f.do(http.MethodPost, "/api/v1/items", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaybackCommands(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/items", twoItems).Code)

	w := f.do(http.MethodPost, "/api/v1/commands/pause", "")
	assert.Equal(t, http.StatusConflict, w.Code, "pause while idle")

	w = f.do(http.MethodPost, "/api/v1/commands/play", "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.JSONEq(t, `{"command":"play","lifecycle":"AWAKENING"}`, w.Body.String())

	f.runner.advance(100 * time.Millisecond)
	assert.Equal(t, "PLAYING", f.state().Lifecycle)

	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/commands/pause", "{}").Code)
	st := f.state()
	assert.Equal(t, "PAUSED", st.Lifecycle)
	assert.Equal(t, "FULL", st.Buffer)

	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/commands/seek", `{"position":3}`).Code)
	assert.InDelta(t, 3.0, f.state().Position, 1e-9)

	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/commands/volume", `{"level":0.5,"fade":"100ms"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/commands/quality", `{"key":"4k"}`).Code)

	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/api/v1/commands/stop", `{"toZero":true}`).Code)
	st = f.state()
	assert.Equal(t, "STOPPED", st.Lifecycle)
	assert.Zero(t, st.Position)
}

func TestCommandRejections(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		body  string
		code  int
		token string
	}{
		{"unknown command", "/api/v1/commands/rewind", "", http.StatusBadRequest, "bad_request"},
		{"bad fade", "/api/v1/commands/volume", `{"level":1,"fade":"slowly"}`, http.StatusBadRequest, "bad_request"},
		{"unknown field", "/api/v1/commands/seek", `{"pos":3}`, http.StatusBadRequest, "bad_request"},
		{"trailing data", "/api/v1/commands/seek", `{"position":3} {}`, http.StatusBadRequest, "bad_request"},
		{"play on empty queue", "/api/v1/commands/play", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.token, body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestCuepoints(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/v1/items", twoItems).Code)

	w := f.do(http.MethodPost, "/api/v1/cuepoints", `{"id":"intro","on":1,"off":2,"group":"chapters"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":"intro"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/cuepoints", `{"on":5,"itemId":"*"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodPost, "/api/v1/cuepoints", `{"on":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var list []events.Cuepoint
	w = f.do(http.MethodGet, "/api/v1/cuepoints", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = f.do(http.MethodGet, "/api/v1/cuepoints?wildcard=true", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = f.do(http.MethodGet, "/api/v1/cuepoints?wildcard=true&group=chapters", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "intro", list[0].ID)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/cuepoints/intro", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/cuepoints/intro", "").Code)
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?kinds=item,state", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	kinds := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if k, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				kinds <- k
			}
		}
		close(kinds)
	}()

	post := func(path, body string) {
		r, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		r.Body.Close()
	}
	post("/api/v1/items", twoItems)
	post("/api/v1/commands/play", "")

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case k := <-kinds:
			got = append(got, k)
		case <-timeout:
			t.Fatalf("events so far: %v", got)
		}
	}
	assert.Equal(t, []string{"item", "state"}, got)
}

func TestEventStream_BadKind(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/v1/events?kinds=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeListener(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.ServeListener(ctx, ln, ServeConfig{ShutdownTimeout: time.Second}) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("x: %w", engine.ErrNoItem), http.StatusNotFound},
		{engine.ErrNotPlayable, http.StatusUnprocessableEntity},
		{fmt.Errorf("pause: %w", fsm.ErrInvalidTransition), http.StatusConflict},
		{engine.ErrUnknownQuality, http.StatusBadRequest},
		{cuepoint.ErrInvalidWindow, http.StatusBadRequest},
		{engine.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := classify(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
