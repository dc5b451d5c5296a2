// File: internal/toolset/toolset_test.go
package toolset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/artifacts"
	"github.com/gazerhq/gazer/internal/config"
)

// fakeBrowser records the last call and returns a canned state or error.
type fakeBrowser struct {
	state    schemas.ComputerState
	err      error
	panicOn  string
	lastCall string
	lastArgs []any
}

func (f *fakeBrowser) called(name string, args ...any) (schemas.ComputerState, error) {
	if f.panicOn == name {
		panic("boom")
	}
	f.lastCall = name
	f.lastArgs = args
	return f.state, f.err
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) (schemas.ComputerState, error) {
	return f.called("navigate", url)
}
func (f *fakeBrowser) GoBack(context.Context) (schemas.ComputerState, error) {
	return f.called("go_back")
}
func (f *fakeBrowser) GoForward(context.Context) (schemas.ComputerState, error) {
	return f.called("go_forward")
}
func (f *fakeBrowser) Search(context.Context) (schemas.ComputerState, error) {
	return f.called("search")
}
func (f *fakeBrowser) OpenWebBrowser(context.Context) (schemas.ComputerState, error) {
	return f.called("open_web_browser")
}
func (f *fakeBrowser) TypeText(_ context.Context, text string, pressEnter, clear bool) (schemas.ComputerState, error) {
	return f.called("type_text", text, pressEnter, clear)
}
func (f *fakeBrowser) KeyCombination(_ context.Context, keys []string) (schemas.ComputerState, error) {
	return f.called("key_combination", keys)
}
func (f *fakeBrowser) ScrollDocument(_ context.Context, direction string) (schemas.ComputerState, error) {
	return f.called("scroll_document", direction)
}
func (f *fakeBrowser) Wait(_ context.Context, seconds float64) (schemas.ComputerState, error) {
	return f.called("wait", seconds)
}
func (f *fakeBrowser) ClickAt(_ context.Context, description string) (schemas.ComputerState, error) {
	return f.called("click_at", description)
}
func (f *fakeBrowser) HoverAt(_ context.Context, description string) (schemas.ComputerState, error) {
	return f.called("hover_at", description)
}
func (f *fakeBrowser) ScrollAt(_ context.Context, description, direction string, magnitude float64) (schemas.ComputerState, error) {
	return f.called("scroll_at", description, direction, magnitude)
}
func (f *fakeBrowser) DragAndDrop(_ context.Context, src, dst string) (schemas.ComputerState, error) {
	return f.called("drag_and_drop", src, dst)
}
func (f *fakeBrowser) ClickAtPixels(_ context.Context, x, y int) (schemas.ComputerState, error) {
	return f.called("click_at_pixels", x, y)
}
func (f *fakeBrowser) HoverAtPixels(_ context.Context, x, y int) (schemas.ComputerState, error) {
	return f.called("hover_at_pixels", x, y)
}
func (f *fakeBrowser) ScrollAtPixels(_ context.Context, x, y int, direction string, magnitude float64) (schemas.ComputerState, error) {
	return f.called("scroll_at_pixels", x, y, direction, magnitude)
}
func (f *fakeBrowser) DragAndDropPixels(_ context.Context, sx, sy, dx, dy int) (schemas.ComputerState, error) {
	return f.called("drag_and_drop_pixels", sx, sy, dx, dy)
}
func (f *fakeBrowser) CurrentState(context.Context) (schemas.ComputerState, error) {
	return f.called("current_state")
}
func (f *fakeBrowser) ScreenSize() schemas.ScreenSize {
	return schemas.ScreenSize{Width: 1440, Height: 900}
}
func (f *fakeBrowser) Environment() schemas.Environment {
	return schemas.EnvironmentBrowser
}

func agentCfg(variant string) config.AgentConfig {
	return config.AgentConfig{
		Toolset:             variant,
		VirtualScreenWidth:  1000,
		VirtualScreenHeight: 1000,
	}
}

func newToolset(t *testing.T, browser *fakeBrowser, variant string) (*Toolset, *artifacts.Store) {
	t.Helper()
	store := artifacts.NewStore()
	ts, err := New(browser, store, agentCfg(variant), zap.NewNop())
	require.NoError(t, err)
	return ts, store
}

var toolSurface = []string{
	"open_web_browser", "navigate", "search", "go_back", "go_forward",
	"type_text", "scroll_document", "key_combination", "wait",
	"current_state", "screen_size", "environment",
	"click_at", "hover_at", "scroll_at", "drag_and_drop",
}

func TestNew_TableComplete(t *testing.T) {
	for _, variant := range []string{"grounded", "coordinates"} {
		t.Run(variant, func(t *testing.T) {
			ts, _ := newToolset(t, &fakeBrowser{}, variant)

			names := make(map[string]bool)
			for _, op := range ts.Operations() {
				names[op.Name] = true
			}
			for _, want := range toolSurface {
				assert.True(t, names[want], "missing tool %q", want)
			}
			assert.Len(t, names, len(toolSurface))

			decls := ts.FunctionDeclarations()
			assert.Len(t, decls, len(toolSurface))
		})
	}
}

func TestNew_UnknownVariant(t *testing.T) {
	_, err := New(&fakeBrowser{}, artifacts.NewStore(), agentCfg("hybrid"), zap.NewNop())
	assert.ErrorIs(t, err, schemas.ErrInvalidInput)
}

func TestInvoke_SuccessMaterializesArtifact(t *testing.T) {
	browser := &fakeBrowser{state: schemas.ComputerState{
		Screenshot: []byte("png"),
		URL:        "https://example.com",
	}}
	ts, store := newToolset(t, browser, "grounded")

	result := ts.Invoke(context.Background(), "app/u/s", "call-7", "navigate", map[string]any{"url": "example.com"})

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "computer_screenshot_call-7.png", result["computer_screenshot_artifact_id"])
	assert.Equal(t, "https://example.com", result["url"])
	assert.Contains(t, result["message"], "https://example.com")
	assert.Equal(t, "navigate", browser.lastCall)
	assert.Equal(t, []any{"example.com"}, browser.lastArgs)

	data, ok := store.TakeOnce("app/u/s", "computer_screenshot_call-7.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), data)
}

func TestInvoke_CurrentStateIsRepeatable(t *testing.T) {
	browser := &fakeBrowser{state: schemas.ComputerState{
		Screenshot: []byte("png"),
		URL:        "https://example.com/results",
	}}
	ts, _ := newToolset(t, browser, "grounded")

	first := ts.Invoke(context.Background(), "k", "call-1", "current_state", nil)
	second := ts.Invoke(context.Background(), "k", "call-2", "current_state", nil)

	assert.Equal(t, "success", first["status"])
	assert.Equal(t, "success", second["status"])
	assert.Equal(t, first["url"], second["url"], "state without an intervening action keeps its url")
	assert.NotEqual(t, first["computer_screenshot_artifact_id"], second["computer_screenshot_artifact_id"])
}

func TestInvoke_ErrorNeverPropagates(t *testing.T) {
	browser := &fakeBrowser{err: schemas.ErrDriver}
	ts, store := newToolset(t, browser, "grounded")

	result := ts.Invoke(context.Background(), "k", "call-1", "go_back", nil)

	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "browser driver failed")
	assert.Contains(t, result["message"], "Action failed")
	assert.Equal(t, 0, store.Len("k"), "no artifact stored on failure")
}

func TestInvoke_PanicRecovered(t *testing.T) {
	browser := &fakeBrowser{panicOn: "navigate"}
	ts, _ := newToolset(t, browser, "grounded")

	result := ts.Invoke(context.Background(), "k", "c", "navigate", map[string]any{"url": "x"})
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "tool execution failed")
}

func TestInvoke_UnknownTool(t *testing.T) {
	ts, _ := newToolset(t, &fakeBrowser{}, "grounded")
	result := ts.Invoke(context.Background(), "k", "c", "teleport", nil)
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "unknown tool")
}

func TestInvoke_MissingArgument(t *testing.T) {
	ts, _ := newToolset(t, &fakeBrowser{}, "grounded")
	result := ts.Invoke(context.Background(), "k", "c", "navigate", map[string]any{})
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "invalid input")
}

func TestInvoke_StatusQueriesReturnRawPayload(t *testing.T) {
	ts, _ := newToolset(t, &fakeBrowser{}, "grounded")

	size := ts.Invoke(context.Background(), "k", "c", "screen_size", nil)
	assert.Equal(t, map[string]any{"width": 1440, "height": 900}, size)

	env := ts.Invoke(context.Background(), "k", "c", "environment", nil)
	assert.Equal(t, map[string]any{"environment": "ENVIRONMENT_BROWSER"}, env)
}

func TestInvoke_TypeTextDefaults(t *testing.T) {
	browser := &fakeBrowser{}
	ts, _ := newToolset(t, browser, "grounded")

	ts.Invoke(context.Background(), "k", "c", "type_text", map[string]any{"text": "hello"})
	assert.Equal(t, "type_text", browser.lastCall)
	assert.Equal(t, []any{"hello", false, true}, browser.lastArgs)
}

func TestInvoke_GroundedPointerTools(t *testing.T) {
	browser := &fakeBrowser{}
	ts, _ := newToolset(t, browser, "grounded")

	ts.Invoke(context.Background(), "k", "c", "click_at", map[string]any{"description": "Submit button"})
	assert.Equal(t, "click_at", browser.lastCall)
	assert.Equal(t, []any{"Submit button"}, browser.lastArgs)

	ts.Invoke(context.Background(), "k", "c", "scroll_at", map[string]any{
		"description": "results list", "direction": "down",
	})
	assert.Equal(t, "scroll_at", browser.lastCall)
	assert.Equal(t, []any{"results list", "down", float64(defaultScrollMagnitude)}, browser.lastArgs)

	ts.Invoke(context.Background(), "k", "c", "drag_and_drop", map[string]any{
		"source_description": "the card", "destination_description": "the trash",
	})
	assert.Equal(t, "drag_and_drop", browser.lastCall)
	assert.Equal(t, []any{"the card", "the trash"}, browser.lastArgs)
}

func TestInvoke_CoordinateToolsNormalize(t *testing.T) {
	browser := &fakeBrowser{}
	ts, _ := newToolset(t, browser, "coordinates")

	// Virtual 1000x1000 onto physical 1440x900.
	ts.Invoke(context.Background(), "k", "c", "click_at", map[string]any{"x": 500.0, "y": 500.0})
	assert.Equal(t, "click_at_pixels", browser.lastCall)
	assert.Equal(t, []any{720, 450}, browser.lastArgs)

	// Out-of-range virtual input clamps to the last pixel.
	ts.Invoke(context.Background(), "k", "c", "click_at", map[string]any{"x": 1000.0, "y": 2000.0})
	assert.Equal(t, []any{1439, 899}, browser.lastArgs)

	ts.Invoke(context.Background(), "k", "c", "drag_and_drop", map[string]any{
		"x": 0.0, "y": 0.0, "destination_x": 500.0, "destination_y": 500.0,
	})
	assert.Equal(t, "drag_and_drop_pixels", browser.lastCall)
	assert.Equal(t, []any{0, 0, 720, 450}, browser.lastArgs)

	ts.Invoke(context.Background(), "k", "c", "scroll_at", map[string]any{
		"x": 500.0, "y": 500.0, "direction": "up", "magnitude": 120.0,
	})
	assert.Equal(t, "scroll_at_pixels", browser.lastCall)
	assert.Equal(t, []any{720, 450, "up", 120.0}, browser.lastArgs)
}
