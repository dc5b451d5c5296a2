// File: internal/driver/settle.go
package driver

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// SettlePolicy decides when a page is stable enough to trust after an
// action. The context it receives is a live chromedp tab context.
//
// The "settled" heuristic is inherently site-dependent, so it is pluggable:
// the default waits for the load-state signal plus a fixed delay, but a
// caller can swap in anything from a no-op to a network-idle watcher.
type SettlePolicy func(ctx context.Context) error

// LoadStateSettle waits for the document body to be ready, then sleeps
// postLoadWait to cover late rendering. The whole wait is bounded by timeout.
func LoadStateSettle(postLoadWait, timeout time.Duration) SettlePolicy {
	return func(ctx context.Context) error {
		settleCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return chromedp.Run(settleCtx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(postLoadWait),
		)
	}
}

// NoSettle skips settling entirely. Useful for tests and static pages.
func NoSettle() SettlePolicy {
	return func(context.Context) error { return nil }
}
