// File: internal/server/handlers_test.go
package server

import (
	"bufio"
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/config"
	"github.com/gazerhq/gazer/internal/sessions"
)

// stubRunner replays a canned trace and records session operations.
type stubRunner struct {
	trace   []schemas.TurnEvent
	lastRun schemas.Session
	dropped []schemas.Session
}

func (s *stubRunner) RunTurn(_ context.Context, session schemas.Session, _ string) <-chan schemas.TurnEvent {
	s.lastRun = session
	events := make(chan schemas.TurnEvent, len(s.trace))
	for _, ev := range s.trace {
		events <- ev
	}
	close(events)
	return events
}

func (s *stubRunner) DropSession(session schemas.Session) {
	s.dropped = append(s.dropped, session)
}

type stubHealth struct{ err error }

func (s *stubHealth) CheckHealth(context.Context) error { return s.err }

func newTestApp(runner *stubRunner, initialized bool) *App {
	cfg := config.NewDefaultConfig()
	cfg.Server.StreamPacing = 0
	return &App{
		cfg:         cfg,
		logger:      zap.NewNop(),
		detector:    &stubHealth{},
		runner:      runner,
		sessions:    sessions.NewStore(cfg.Agent.AppName, zap.NewNop()),
		initialized: initialized,
	}
}

func streamRecords(t *testing.T, body string) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "))
		var rec map[string]any
		require.NoError(t, stdjson.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec))
		records = append(records, rec)
	}
	return records
}

func TestHandleRoot(t *testing.T) {
	app := newTestApp(&stubRunner{}, true)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gazer")
}

func TestHandleHealth(t *testing.T) {
	t.Run("initialized", func(t *testing.T) {
		app := newTestApp(&stubRunner{}, true)
		rec := httptest.NewRecorder()
		app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp schemas.HealthResponse
		require.NoError(t, stdjson.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.AgentInitialized)
	})

	t.Run("not initialized", func(t *testing.T) {
		app := newTestApp(&stubRunner{}, false)
		rec := httptest.NewRecorder()
		app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleExecute_StreamsTurn(t *testing.T) {
	runner := &stubRunner{trace: []schemas.TurnEvent{
		{Fragments: []schemas.Fragment{{Text: "thinking"}}},
		{Final: true, Fragments: []schemas.Fragment{{Text: "Done"}}},
	}}
	app := newTestApp(runner, true)

	body := strings.NewReader(`{"task": "find cats", "user_id": "u1", "session_id": "s1"}`)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/execute", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	records := streamRecords(t, rec.Body.String())
	require.Len(t, records, 3)
	assert.Equal(t, "thinking", records[0]["reasoning"])
	assert.Equal(t, "Done", records[1]["final_answer"])
	assert.Equal(t, true, records[2]["done"])

	assert.Equal(t, "u1", runner.lastRun.UserID)
	assert.Equal(t, "s1", runner.lastRun.SessionID)
}

func TestHandleExecute_Validation(t *testing.T) {
	app := newTestApp(&stubRunner{}, true)

	t.Run("empty task", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"task": "  "}`)
		app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/execute", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{not json`)
		app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/execute", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleExecute_NotInitialized(t *testing.T) {
	app := newTestApp(&stubRunner{}, false)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"task": "anything"}`)
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/execute", body))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleResetSession(t *testing.T) {
	runner := &stubRunner{}
	app := newTestApp(runner, true)
	app.sessions.GetOrCreate("u1", "s1")
	require.Equal(t, 1, app.sessions.Len())

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"user_id": "u1", "session_id": "s1"}`)
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset-session", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, app.sessions.Len())
	require.Len(t, runner.dropped, 1)
	assert.Equal(t, "u1", runner.dropped[0].UserID)
}

func TestHandleResetSession_RequiresIDs(t *testing.T) {
	app := newTestApp(&stubRunner{}, true)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"user_id": "u1"}`)
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset-session", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
