// File: internal/stream/emitter.go
package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gazerhq/gazer/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// doneRecord closes the stream deterministically; clients end on this record
// rather than on transport EOF.
const doneRecord = `{"done": true}`

// Emitter frames AgentMessages as push records on a writer. Records are
// paced by a rate limiter so quick successive messages do not coalesce on
// the client side.
type Emitter struct {
	w       io.Writer
	flusher http.Flusher
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEmitter wraps w. When w is an http.ResponseWriter the stream is flushed
// after every record. A zero pacing disables the delay.
func NewEmitter(w io.Writer, pacing time.Duration, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emitter{w: w, logger: logger.Named("stream")}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	if pacing > 0 {
		e.limiter = rate.NewLimiter(rate.Every(pacing), 1)
	}
	return e
}

// Emit writes one framed message record.
func (e *Emitter) Emit(ctx context.Context, msg schemas.AgentMessage) error {
	if msg.IsZero() {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return e.write(ctx, payload)
}

// Done writes the completion record ending the stream.
func (e *Emitter) Done(ctx context.Context) error {
	return e.write(ctx, []byte(doneRecord))
}

func (e *Emitter) write(ctx context.Context, payload []byte) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// Relay consumes a turn trace and streams its classified messages, then the
// completion record. Any panic across the turn is caught at this outermost
// boundary and surfaced as a single error record so the stream still ends
// cleanly.
func Relay(ctx context.Context, e *Emitter, events <-chan schemas.TurnEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Turn processing panicked", zap.Any("panic", r))
			_ = e.Emit(ctx, schemas.AgentMessage{Error: fmt.Sprintf("Internal error: %v", r)})
		}
		if err := e.Done(ctx); err != nil {
			e.logger.Warn("Failed to emit completion record", zap.Error(err))
		}
	}()

	for event := range events {
		for _, msg := range Classify(event) {
			if err := e.Emit(ctx, msg); err != nil {
				e.logger.Warn("Stream write failed; draining turn", zap.Error(err))
				// Keep draining so the producer is not blocked forever.
				for range events {
				}
				return
			}
		}
	}
}
