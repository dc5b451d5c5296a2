// File: internal/stream/emitter_test.go
package stream

import (
	"bufio"
	"bytes"
	"context"
	stdjson "encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// parseRecords splits a raw stream body into its JSON payloads.
func parseRecords(t *testing.T, body string) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected frame %q", line)
		var rec map[string]any
		require.NoError(t, stdjson.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec))
		records = append(records, rec)
	}
	return records
}

func TestEmitter_FramesRecords(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, e.Emit(ctx, schemas.AgentMessage{Reasoning: "thinking"}))
	require.NoError(t, e.Emit(ctx, schemas.AgentMessage{FinalAnswer: "Done"}))
	require.NoError(t, e.Done(ctx))

	records := parseRecords(t, buf.String())
	require.Len(t, records, 3)
	assert.Equal(t, "thinking", records[0]["reasoning"])
	assert.Equal(t, "Done", records[1]["final_answer"])
	assert.Equal(t, true, records[2]["done"])
}

func TestEmitter_SkipsZeroMessages(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 0, zap.NewNop())

	require.NoError(t, e.Emit(context.Background(), schemas.AgentMessage{}))
	assert.Zero(t, buf.Len())
}

func TestEmitter_FlushesResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	e := NewEmitter(rec, 0, zap.NewNop())

	require.NoError(t, e.Emit(context.Background(), schemas.AgentMessage{Reasoning: "x"}))
	assert.True(t, rec.Flushed)
}

func TestEmitter_PacingRespectsContext(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, time.Hour, zap.NewNop())
	ctx := context.Background()

	// First record is admitted by the limiter's initial burst.
	require.NoError(t, e.Emit(ctx, schemas.AgentMessage{Reasoning: "a"}))

	// The second would wait an hour; a canceled context aborts it.
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, e.Emit(canceled, schemas.AgentMessage{Reasoning: "b"}))
}

func TestRelay_StreamsTurnAndCompletes(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 0, zap.NewNop())

	events := make(chan schemas.TurnEvent, 4)
	events <- schemas.TurnEvent{Fragments: []schemas.Fragment{{Text: "thinking"}}}
	events <- schemas.TurnEvent{Fragments: []schemas.Fragment{{Call: &schemas.ToolCallFragment{
		Name: "navigate", Args: map[string]any{"url": "example.com"},
	}}}}
	events <- schemas.TurnEvent{Final: true, Fragments: []schemas.Fragment{{Text: "All done"}}}
	close(events)

	Relay(context.Background(), e, events)

	records := parseRecords(t, buf.String())
	require.Len(t, records, 4)
	assert.Equal(t, "thinking", records[0]["reasoning"])
	assert.Contains(t, records[1]["tool_call"], "navigate")
	assert.Equal(t, "All done", records[2]["final_answer"])
	assert.Equal(t, true, records[3]["done"])
}

func TestRelay_AlwaysEndsWithDone(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, 0, zap.NewNop())

	events := make(chan schemas.TurnEvent)
	close(events)
	Relay(context.Background(), e, events)

	records := parseRecords(t, buf.String())
	require.Len(t, records, 1)
	assert.Equal(t, true, records[0]["done"])
}
