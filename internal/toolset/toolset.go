// File: internal/toolset/toolset.go

// Package toolset exposes the browser to the agent loop as a statically
// enumerated operation table: name -> (parameter schema, handler, wrapping
// rule), fixed at construction. Every invocation is materialized into a
// structured ActionResult at this boundary; no error or panic from inside a
// tool ever reaches the agent loop.
package toolset

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/artifacts"
	"github.com/gazerhq/gazer/internal/config"
	"github.com/gazerhq/gazer/internal/virtualgrid"
)

// Browser is the driver surface the operation table binds to.
type Browser interface {
	Navigate(ctx context.Context, url string) (schemas.ComputerState, error)
	GoBack(ctx context.Context) (schemas.ComputerState, error)
	GoForward(ctx context.Context) (schemas.ComputerState, error)
	Search(ctx context.Context) (schemas.ComputerState, error)
	OpenWebBrowser(ctx context.Context) (schemas.ComputerState, error)
	TypeText(ctx context.Context, text string, pressEnter, clearBefore bool) (schemas.ComputerState, error)
	KeyCombination(ctx context.Context, keys []string) (schemas.ComputerState, error)
	ScrollDocument(ctx context.Context, direction string) (schemas.ComputerState, error)
	Wait(ctx context.Context, seconds float64) (schemas.ComputerState, error)
	ClickAt(ctx context.Context, description string) (schemas.ComputerState, error)
	HoverAt(ctx context.Context, description string) (schemas.ComputerState, error)
	ScrollAt(ctx context.Context, description, direction string, magnitude float64) (schemas.ComputerState, error)
	DragAndDrop(ctx context.Context, sourceDescription, destinationDescription string) (schemas.ComputerState, error)
	ClickAtPixels(ctx context.Context, x, y int) (schemas.ComputerState, error)
	HoverAtPixels(ctx context.Context, x, y int) (schemas.ComputerState, error)
	ScrollAtPixels(ctx context.Context, x, y int, direction string, magnitude float64) (schemas.ComputerState, error)
	DragAndDropPixels(ctx context.Context, sx, sy, dx, dy int) (schemas.ComputerState, error)
	CurrentState(ctx context.Context) (schemas.ComputerState, error)
	ScreenSize() schemas.ScreenSize
	Environment() schemas.Environment
}

// stateHandler performs a page action and returns the captured state.
type stateHandler func(ctx context.Context, args map[string]any) (schemas.ComputerState, error)

// queryHandler answers a status query with a raw payload.
type queryHandler func(ctx context.Context) (map[string]any, error)

// Operation is one entry of the tool table. Exactly one of run and query is
// set: run results are materialized into ActionResults, query results pass
// through unwrapped.
type Operation struct {
	Name        string
	Description string
	Parameters  *genai.Schema
	run         stateHandler
	query       queryHandler
}

// Toolset binds the operation table to a browser and an artifact store.
type Toolset struct {
	browser  Browser
	store    *artifacts.Store
	logger   *zap.Logger
	virtualW int
	virtualH int

	ops   map[string]*Operation
	order []string
}

// New builds the operation table. cfg.Toolset selects the pointer-target
// style: "grounded" tools take element descriptions, "coordinates" tools
// take virtual-screen coordinates run through the normalizer.
func New(browser Browser, store *artifacts.Store, cfg config.AgentConfig, logger *zap.Logger) (*Toolset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Toolset{
		browser:  browser,
		store:    store,
		logger:   logger.Named("toolset"),
		virtualW: cfg.VirtualScreenWidth,
		virtualH: cfg.VirtualScreenHeight,
		ops:      make(map[string]*Operation),
	}

	t.registerCommon()
	switch cfg.Toolset {
	case "grounded":
		t.registerGrounded()
	case "coordinates":
		t.registerCoordinates()
	default:
		return nil, fmt.Errorf("%w: unknown toolset variant %q", schemas.ErrInvalidInput, cfg.Toolset)
	}
	return t, nil
}

func (t *Toolset) register(op *Operation) {
	t.ops[op.Name] = op
	t.order = append(t.order, op.Name)
}

// Operations returns the table entries in registration order.
func (t *Toolset) Operations() []*Operation {
	out := make([]*Operation, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.ops[name])
	}
	return out
}

// FunctionDeclarations renders the table for the genai tool interface.
func (t *Toolset) FunctionDeclarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(t.order))
	for _, op := range t.Operations() {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        op.Name,
			Description: op.Description,
			Parameters:  op.Parameters,
		})
	}
	return decls
}

// Invoke runs the named tool and always returns a well-formed payload.
// State-changing tools return an ActionResult map with the screenshot stored
// under a call-scoped artifact ID; status queries return their raw payload.
func (t *Toolset) Invoke(ctx context.Context, sessionKey, callID, name string, args map[string]any) (result map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Tool handler panicked", zap.String("tool", name), zap.Any("panic", r))
			result = schemas.ErrorResult(fmt.Errorf("%w: internal panic in %s", schemas.ErrToolExecution, name)).ToMap()
		}
	}()

	op, ok := t.ops[name]
	if !ok {
		return schemas.ErrorResult(fmt.Errorf("%w: unknown tool %q", schemas.ErrToolExecution, name)).ToMap()
	}
	if args == nil {
		args = map[string]any{}
	}

	if op.query != nil {
		payload, err := op.query(ctx)
		if err != nil {
			return schemas.ErrorResult(err).ToMap()
		}
		return payload
	}

	state, err := op.run(ctx, args)
	if err != nil {
		t.logger.Warn("Tool failed", zap.String("tool", name), zap.Error(err))
		return schemas.ErrorResult(err).ToMap()
	}

	artifactID := artifacts.ScreenshotID(callID)
	t.store.Put(sessionKey, artifactID, state.Screenshot)
	t.logger.Debug("Tool succeeded",
		zap.String("tool", name),
		zap.String("artifact_id", artifactID),
		zap.String("url", state.URL))
	return schemas.SuccessResult(artifactID, state.URL).ToMap()
}

// toPixels maps a virtual coordinate pair onto the physical viewport.
func (t *Toolset) toPixels(vx, vy float64) (int, int) {
	size := t.browser.ScreenSize()
	return virtualgrid.Point(vx, vy, t.virtualW, t.virtualH, size.Width, size.Height)
}
