// File: internal/agent/runner.go

// Package agent holds the reference turn runner: a genai function-calling
// loop over the tool table. It produces the ordered turn trace the stream
// classifier consumes. The runner is deliberately replaceable; everything
// below it only depends on the trace it emits.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/artifacts"
	"github.com/gazerhq/gazer/internal/config"
)

// Tools is the operation-table surface the runner drives.
type Tools interface {
	Invoke(ctx context.Context, sessionKey, callID, name string, args map[string]any) map[string]any
	FunctionDeclarations() []*genai.FunctionDeclaration
}

// Runner executes agent turns against the Gemini API, holding per-session
// conversation history in memory.
type Runner struct {
	client   *genai.Client
	model    string
	maxSteps int
	tools    Tools
	store    *artifacts.Store
	logger   *zap.Logger

	mu        sync.Mutex
	histories map[string][]*genai.Content
}

// NewRunner builds a runner from configuration.
func NewRunner(ctx context.Context, cfg config.AgentConfig, tools Tools, store *artifacts.Store, logger *zap.Logger) (*Runner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("agent API key is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Runner{
		client:    client,
		model:     cfg.Model,
		maxSteps:  cfg.MaxSteps,
		tools:     tools,
		store:     store,
		logger:    logger.Named("agent"),
		histories: make(map[string][]*genai.Content),
	}, nil
}

// RunTurn executes one turn for session and streams its trace. The returned
// channel is closed when the turn ends. Turns on one session must be
// serialized by the caller.
func (r *Runner) RunTurn(ctx context.Context, session schemas.Session, task string) <-chan schemas.TurnEvent {
	events := make(chan schemas.TurnEvent, 8)
	go func() {
		defer close(events)
		r.runTurn(ctx, session, task, events)
	}()
	return events
}

// DropSession forgets the conversation history and pending artifacts of a
// session.
func (r *Runner) DropSession(session schemas.Session) {
	r.mu.Lock()
	delete(r.histories, session.Key())
	r.mu.Unlock()
	r.store.DropSession(session.Key())
}

func (r *Runner) runTurn(ctx context.Context, session schemas.Session, task string, events chan<- schemas.TurnEvent) {
	key := session.Key()
	history := r.history(key)
	history = append(history, genai.NewContentFromText(task, genai.RoleUser))

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: r.tools.FunctionDeclarations()},
		},
	}

	for step := 0; step < r.maxSteps; step++ {
		resp, err := r.client.Models.GenerateContent(ctx, r.model, history, genCfg)
		if err != nil {
			r.logger.Error("Model call failed", zap.Error(err), zap.Int("step", step))
			events <- schemas.TurnEvent{
				Final:        true,
				Escalate:     true,
				ErrorMessage: fmt.Sprintf("model call failed: %v", err),
			}
			return
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			events <- schemas.TurnEvent{Final: true, Escalate: true, ErrorMessage: "model returned no content"}
			return
		}

		content := resp.Candidates[0].Content
		history = append(history, content)

		texts, calls := splitParts(content.Parts)

		if len(calls) == 0 {
			// No tool calls: the turn ends with the model's answer.
			r.saveHistory(key, history)
			events <- schemas.TurnEvent{Final: true, Fragments: textFragments(texts)}
			return
		}

		if len(texts) > 0 {
			events <- schemas.TurnEvent{Fragments: textFragments(texts)}
		}

		// Execute the requested calls in order, feeding results (and the
		// rehydrated screenshot, exactly once per artifact) back to the
		// model.
		var responseParts []*genai.Part
		for _, call := range calls {
			callID := uuid.NewString()
			events <- schemas.TurnEvent{Fragments: []schemas.Fragment{{
				Call: &schemas.ToolCallFragment{Name: call.Name, Args: call.Args},
			}}}

			result := r.tools.Invoke(ctx, key, callID, call.Name, call.Args)
			events <- schemas.TurnEvent{Fragments: []schemas.Fragment{{
				Result: &schemas.ToolResultFragment{Name: call.Name, Response: result},
			}}}

			responseParts = append(responseParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: call.Name, Response: result},
			})
			if id, ok := result["computer_screenshot_artifact_id"].(string); ok {
				if shot, found := r.store.TakeOnce(key, id); found {
					responseParts = append(responseParts, genai.NewPartFromBytes(shot, "image/png"))
				}
			}
		}
		history = append(history, genai.NewContentFromParts(responseParts, genai.RoleUser))
	}

	r.saveHistory(key, history)
	events <- schemas.TurnEvent{
		Final:        true,
		Escalate:     true,
		ErrorMessage: fmt.Sprintf("maximum number of steps (%d) reached", r.maxSteps),
	}
}

func (r *Runner) history(key string) []*genai.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.histories[key]
}

func (r *Runner) saveHistory(key string, history []*genai.Content) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories[key] = history
}

func splitParts(parts []*genai.Part) ([]string, []*genai.FunctionCall) {
	var texts []string
	var calls []*genai.FunctionCall
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return texts, calls
}

func textFragments(texts []string) []schemas.Fragment {
	frags := make([]schemas.Fragment, 0, len(texts))
	for _, t := range texts {
		frags = append(frags, schemas.Fragment{Text: t})
	}
	return frags
}
