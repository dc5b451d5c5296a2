// File: internal/driver/driver.go

// Package driver owns the live browser page. It exposes primitive page
// actions and visually targeted composite actions built on the grounding
// resolver, and captures a fresh state snapshot after every action.
//
// A driver assumes at most one in-flight action at a time; callers serialize
// access (one driver per session).
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/config"
)

// Resolver turns a natural-language element description into a pixel
// coordinate on the given screenshot.
type Resolver interface {
	Locate(ctx context.Context, screenshot []byte, description string) (float64, float64, error)
}

// Driver drives one Chromium page through CDP.
// Lifecycle: Uninitialized -> Ready -> Closed.
type Driver struct {
	cfg      config.BrowserConfig
	net      config.NetworkConfig
	resolver Resolver
	settle   SettlePolicy
	logger   *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	initialized bool
	closed      bool
}

// NewDriver builds a driver; the browser process is not started until
// Initialize. A nil settle policy gets the default load-state policy.
func NewDriver(cfg config.BrowserConfig, net config.NetworkConfig, resolver Resolver, settle SettlePolicy, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settle == nil {
		settle = LoadStateSettle(net.PostLoadWait, net.SettleTimeout)
	}
	return &Driver{
		cfg:      cfg,
		net:      net,
		resolver: resolver,
		settle:   settle,
		logger:   logger.Named("driver"),
	}
}

// Initialize launches the browser, sets the viewport, and navigates to the
// configured initial URL. Calling it again on a Ready driver is a no-op.
func (d *Driver) Initialize(ctx context.Context) error {
	if d.closed {
		return fmt.Errorf("%w: driver is closed", schemas.ErrDriver)
	}
	if d.initialized {
		return nil
	}

	d.logger.Info("Launching browser",
		zap.Bool("headless", d.cfg.Headless),
		zap.Int("width", d.cfg.ScreenWidth),
		zap.Int("height", d.cfg.ScreenHeight))

	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(ctx, d.buildAllocatorOptions()...)
	d.tabCtx, d.tabCancel = chromedp.NewContext(d.allocCtx)

	// Confirm the browser is alive before declaring Ready.
	probeCtx, cancel := context.WithTimeout(d.tabCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(probeCtx,
		chromedp.EmulateViewport(int64(d.cfg.ScreenWidth), int64(d.cfg.ScreenHeight)),
		chromedp.Navigate("about:blank"),
	); err != nil {
		d.teardown()
		return fmt.Errorf("%w: browser failed to start: %v", schemas.ErrDriver, err)
	}

	if d.cfg.InitialURL != "" {
		if err := d.runNav(ctx, chromedp.Navigate(d.cfg.InitialURL)); err != nil {
			d.teardown()
			return err
		}
	}

	d.initialized = true
	d.logger.Info("Browser ready", zap.String("initial_url", d.cfg.InitialURL))
	return nil
}

// buildAllocatorOptions assembles launch flags, overriding the automation
// banner the defaults ship with.
func (d *Driver) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-gpu", true),
	)
	if d.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.cfg.UserDataDir))
	}

	for _, arg := range d.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// Close tears down the tab and the browser process in order. A second Close
// is a no-op, and the known benign shutdown race reports success.
func (d *Driver) Close(_ context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.initialized = false

	if d.tabCtx != nil {
		if err := chromedp.Cancel(d.tabCtx); err != nil && !isBenignShutdownErr(err) {
			d.teardown()
			return fmt.Errorf("%w: closing tab: %v", schemas.ErrDriver, err)
		}
	}
	d.teardown()
	d.logger.Info("Browser closed")
	return nil
}

func (d *Driver) teardown() {
	if d.tabCancel != nil {
		d.tabCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
}

// isBenignShutdownErr recognizes the race where the browser disappears while
// we are telling it to close.
func isBenignShutdownErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "context canceled") ||
		strings.Contains(msg, "browser has been closed") ||
		strings.Contains(msg, "websocket: close") ||
		strings.Contains(msg, "connection reset")
}

func (d *Driver) ready() error {
	if d.closed {
		return fmt.Errorf("%w: driver is closed", schemas.ErrDriver)
	}
	if !d.initialized {
		return fmt.Errorf("%w: driver is not initialized", schemas.ErrDriver)
	}
	return nil
}

// run executes actions on the tab, honoring the caller's deadline.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(ctx, d.tabCtx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrDriver, err)
	}
	return nil
}

// runNav is run with the navigation timeout applied.
func (d *Driver) runNav(ctx context.Context, actions ...chromedp.Action) error {
	navCtx, cancel := context.WithTimeout(ctx, d.net.NavigationTimeout)
	defer cancel()
	return d.run(navCtx, actions...)
}

// combineContext derives a context from tab that also ends when parent does,
// so a caller deadline interrupts a CDP call without killing the tab.
func combineContext(parent, tab context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(tab)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// -- State capture --

// CurrentState settles the page, then captures a screenshot and the URL.
func (d *Driver) CurrentState(ctx context.Context) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}

	settleCtx, cancel := combineContext(ctx, d.tabCtx)
	if err := d.settle(settleCtx); err != nil {
		cancel()
		return schemas.ComputerState{}, fmt.Errorf("%w: settling page: %v", schemas.ErrDriver, err)
	}
	cancel()

	var shot []byte
	var url string
	if err := d.run(ctx,
		chromedp.CaptureScreenshot(&shot),
		chromedp.Location(&url),
	); err != nil {
		return schemas.ComputerState{}, err
	}
	return schemas.ComputerState{Screenshot: shot, URL: url}, nil
}

// afterAction settles and captures the post-action state.
func (d *Driver) afterAction(ctx context.Context) (schemas.ComputerState, error) {
	return d.CurrentState(ctx)
}

// -- Primitive actions --

// Navigate loads url, defaulting to https when the scheme is missing.
func (d *Driver) Navigate(ctx context.Context, url string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return schemas.ComputerState{}, fmt.Errorf("%w: empty url", schemas.ErrInvalidInput)
	}
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	if err := d.runNav(ctx, chromedp.Navigate(url)); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// GoBack navigates one step back in history.
func (d *Driver) GoBack(ctx context.Context) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	if err := d.runNav(ctx, chromedp.NavigateBack()); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// GoForward navigates one step forward in history.
func (d *Driver) GoForward(ctx context.Context) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	if err := d.runNav(ctx, chromedp.NavigateForward()); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// Search opens the configured search engine.
func (d *Driver) Search(ctx context.Context) (schemas.ComputerState, error) {
	return d.Navigate(ctx, d.cfg.SearchEngineURL)
}

// OpenWebBrowser returns to the configured start page.
func (d *Driver) OpenWebBrowser(ctx context.Context) (schemas.ComputerState, error) {
	return d.Navigate(ctx, d.cfg.InitialURL)
}

// TypeText types into the focused element. clearBefore selects existing
// content (Ctrl+A, Delete) first; pressEnter submits afterwards.
func (d *Driver) TypeText(ctx context.Context, text string, pressEnter, clearBefore bool) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}

	runCtx, cancel := combineContext(ctx, d.tabCtx)
	defer cancel()

	if clearBefore {
		if err := pressChord(runCtx, []string{"control", "a"}); err != nil {
			return schemas.ComputerState{}, fmt.Errorf("%w: clearing field: %v", schemas.ErrDriver, err)
		}
		if err := pressChord(runCtx, []string{"delete"}); err != nil {
			return schemas.ComputerState{}, fmt.Errorf("%w: clearing field: %v", schemas.ErrDriver, err)
		}
	}
	if err := d.run(ctx, chromedp.KeyEvent(text)); err != nil {
		return schemas.ComputerState{}, err
	}
	if pressEnter {
		if err := pressChord(runCtx, []string{"enter"}); err != nil {
			return schemas.ComputerState{}, fmt.Errorf("%w: pressing enter: %v", schemas.ErrDriver, err)
		}
	}
	return d.afterAction(ctx)
}

// KeyCombination presses a chord like ["control", "c"].
func (d *Driver) KeyCombination(ctx context.Context, keys []string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}

	runCtx, cancel := combineContext(ctx, d.tabCtx)
	if err := pressChord(runCtx, keys); err != nil {
		cancel()
		if errors.Is(err, schemas.ErrInvalidInput) {
			return schemas.ComputerState{}, err
		}
		return schemas.ComputerState{}, fmt.Errorf("%w: key combination: %v", schemas.ErrDriver, err)
	}
	cancel()
	return d.afterAction(ctx)
}

// ScrollDocument scrolls the whole page one unit in direction. Vertical
// scrolling reuses Page-Up/Page-Down, which survives custom scroll handlers
// better than synthetic wheel deltas; horizontal scrolling shifts by half
// the viewport width.
func (d *Driver) ScrollDocument(ctx context.Context, direction string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}

	switch strings.ToLower(direction) {
	case "up":
		return d.KeyCombination(ctx, []string{"pageup"})
	case "down":
		return d.KeyCombination(ctx, []string{"pagedown"})
	case "left", "right":
		script := horizontalScrollScript(d.cfg.ScreenWidth, strings.ToLower(direction))
		if err := d.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
			return schemas.ComputerState{}, err
		}
		return d.afterAction(ctx)
	default:
		return schemas.ComputerState{}, fmt.Errorf("%w: unknown scroll direction %q", schemas.ErrInvalidInput, direction)
	}
}

// horizontalScrollScript shifts the document by half the viewport width.
func horizontalScrollScript(viewportWidth int, direction string) string {
	delta := viewportWidth / 2
	if direction == "left" {
		delta = -delta
	}
	return fmt.Sprintf("window.scrollBy(%d, 0);", delta)
}

// Wait pauses for the given number of seconds, then reports fresh state.
func (d *Driver) Wait(ctx context.Context, seconds float64) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	if seconds < 0 {
		return schemas.ComputerState{}, fmt.Errorf("%w: negative wait duration", schemas.ErrInvalidInput)
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	case <-ctx.Done():
		return schemas.ComputerState{}, fmt.Errorf("%w: %v", schemas.ErrDriver, ctx.Err())
	}
	return d.afterAction(ctx)
}

// -- Pixel-level pointer actions (numeric-coordinate tool variant) --

// ClickAtPixels clicks the viewport at physical pixel (x, y).
func (d *Driver) ClickAtPixels(ctx context.Context, x, y int) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	d.maybeMarker(ctx, x, y)
	if err := d.run(ctx, chromedp.MouseClickXY(float64(x), float64(y))); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// HoverAtPixels moves the pointer to (x, y) without clicking.
func (d *Driver) HoverAtPixels(ctx context.Context, x, y int) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	d.maybeMarker(ctx, x, y)
	if err := d.run(ctx, chromedp.MouseEvent(input.MouseMoved, float64(x), float64(y))); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// ScrollAtPixels dispatches a wheel event at (x, y) with the signed delta
// for direction and magnitude.
func (d *Driver) ScrollAtPixels(ctx context.Context, x, y int, direction string, magnitude float64) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	dx, dy, err := scrollDeltas(direction, magnitude)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	wheel := input.DispatchMouseEvent(input.MouseWheel, float64(x), float64(y)).
		WithDeltaX(dx).
		WithDeltaY(dy)
	if err := d.run(ctx, wheel); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// DragAndDropPixels presses at the source, moves to the destination, and
// releases.
func (d *Driver) DragAndDropPixels(ctx context.Context, sx, sy, dx, dy int) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	if err := d.run(ctx,
		chromedp.MouseEvent(input.MouseMoved, float64(sx), float64(sy)),
		chromedp.MouseEvent(input.MousePressed, float64(sx), float64(sy), chromedp.Button("left"), chromedp.ClickCount(1)),
		chromedp.MouseEvent(input.MouseMoved, float64(dx), float64(dy), chromedp.Button("left")),
		chromedp.MouseEvent(input.MouseReleased, float64(dx), float64(dy), chromedp.Button("left"), chromedp.ClickCount(1)),
	); err != nil {
		return schemas.ComputerState{}, err
	}
	return d.afterAction(ctx)
}

// scrollDeltas converts a direction plus magnitude into wheel deltas.
func scrollDeltas(direction string, magnitude float64) (float64, float64, error) {
	if magnitude < 0 {
		return 0, 0, fmt.Errorf("%w: negative scroll magnitude", schemas.ErrInvalidInput)
	}
	switch strings.ToLower(direction) {
	case "up":
		return 0, -magnitude, nil
	case "down":
		return 0, magnitude, nil
	case "left":
		return -magnitude, 0, nil
	case "right":
		return magnitude, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown scroll direction %q", schemas.ErrInvalidInput, direction)
	}
}

// -- Visually targeted composite actions --

// locate resolves description against a fresh state snapshot.
func (d *Driver) locate(ctx context.Context, description string) (schemas.ComputerState, int, int, error) {
	state, err := d.CurrentState(ctx)
	if err != nil {
		return schemas.ComputerState{}, 0, 0, err
	}
	x, y, err := d.resolver.Locate(ctx, state.Screenshot, description)
	if err != nil {
		return schemas.ComputerState{}, 0, 0, err
	}
	return state, int(x), int(y), nil
}

// ClickAt resolves description to a coordinate and clicks it.
func (d *Driver) ClickAt(ctx context.Context, description string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	_, x, y, err := d.locate(ctx, description)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	d.logger.Debug("Clicking element", zap.String("description", description), zap.Int("x", x), zap.Int("y", y))
	return d.ClickAtPixels(ctx, x, y)
}

// HoverAt resolves description and moves the pointer over it.
func (d *Driver) HoverAt(ctx context.Context, description string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	_, x, y, err := d.locate(ctx, description)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	return d.HoverAtPixels(ctx, x, y)
}

// ScrollAt resolves description and scrolls at its position.
func (d *Driver) ScrollAt(ctx context.Context, description, direction string, magnitude float64) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}
	_, x, y, err := d.locate(ctx, description)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	return d.ScrollAtPixels(ctx, x, y, direction, magnitude)
}

// DragAndDrop resolves the source and destination against two separate
// screenshots: the page may change after the source highlight, so the
// destination is grounded on a second fresh capture.
func (d *Driver) DragAndDrop(ctx context.Context, sourceDescription, destinationDescription string) (schemas.ComputerState, error) {
	if err := d.ready(); err != nil {
		return schemas.ComputerState{}, err
	}

	_, sx, sy, err := d.locate(ctx, sourceDescription)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	d.maybeMarker(ctx, sx, sy)

	_, dx, dy, err := d.locate(ctx, destinationDescription)
	if err != nil {
		return schemas.ComputerState{}, err
	}
	d.maybeMarker(ctx, dx, dy)

	return d.DragAndDropPixels(ctx, sx, sy, dx, dy)
}

// maybeMarker renders the transient highlight when enabled.
func (d *Driver) maybeMarker(ctx context.Context, x, y int) {
	if !d.cfg.HighlightMouse {
		return
	}
	markerCtx, cancel := combineContext(ctx, d.tabCtx)
	defer cancel()
	showMarker(markerCtx, x, y)
}

// -- Status queries --

// ScreenSize reports the configured viewport dimensions.
func (d *Driver) ScreenSize() schemas.ScreenSize {
	return schemas.ScreenSize{Width: d.cfg.ScreenWidth, Height: d.cfg.ScreenHeight}
}

// Environment reports the environment kind the driver controls.
func (d *Driver) Environment() schemas.Environment {
	return schemas.EnvironmentBrowser
}
