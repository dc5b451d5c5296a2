// File: internal/driver/keys.go
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/gazerhq/gazer/api/schemas"
)

// keyNameMap normalizes the lowercase key names the model uses into the DOM
// key values the CDP input domain expects. Single printable characters pass
// through unchanged.
var keyNameMap = map[string]string{
	"backspace": "Backspace",
	"tab":       "Tab",
	"return":    "Enter",
	"enter":     "Enter",
	"shift":     "Shift",
	"control":   "Control",
	"ctrl":      "Control",
	"alt":       "Alt",
	"option":    "Alt",
	"pause":     "Pause",
	"escape":    "Escape",
	"esc":       "Escape",
	"space":     " ",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"end":       "End",
	"home":      "Home",
	"left":      "ArrowLeft",
	"up":        "ArrowUp",
	"right":     "ArrowRight",
	"down":      "ArrowDown",
	"insert":    "Insert",
	"delete":    "Delete",
	"command":   "Meta",
	"cmd":       "Meta",
	"meta":      "Meta",
	"win":       "Meta",
	"f1":        "F1",
	"f2":        "F2",
	"f3":        "F3",
	"f4":        "F4",
	"f5":        "F5",
	"f6":        "F6",
	"f7":        "F7",
	"f8":        "F8",
	"f9":        "F9",
	"f10":       "F10",
	"f11":       "F11",
	"f12":       "F12",
}

// canonicalKey maps a caller-supplied key name onto its DOM key value.
func canonicalKey(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if mapped, ok := keyNameMap[strings.ToLower(trimmed)]; ok {
		return mapped, nil
	}
	// Anything else must be a single printable character.
	if len([]rune(trimmed)) == 1 {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: unknown key %q", schemas.ErrInvalidInput, name)
}

// keyEvent builds the CDP dispatch for one key transition. Printable keys
// carry text so keyDown produces a character.
func keyEvent(typ input.KeyType, key string) *input.DispatchKeyEventParams {
	p := input.DispatchKeyEvent(typ).WithKey(key)
	if typ == input.KeyDown && len([]rune(key)) == 1 {
		p = p.WithText(key)
	}
	return p
}

// chordEvents expands a chord into its event sequence: hold every key except
// the last, press and release the last, then release the held keys in
// reverse order.
func chordEvents(keys []string) ([]*input.DispatchKeyEventParams, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: key combination is empty", schemas.ErrInvalidInput)
	}

	mapped := make([]string, len(keys))
	for i, k := range keys {
		key, err := canonicalKey(k)
		if err != nil {
			return nil, err
		}
		mapped[i] = key
	}

	held := mapped[:len(mapped)-1]
	last := mapped[len(mapped)-1]

	var events []*input.DispatchKeyEventParams
	for _, k := range held {
		events = append(events, keyEvent(input.KeyRawDown, k))
	}
	events = append(events,
		keyEvent(input.KeyDown, last),
		keyEvent(input.KeyUp, last),
	)
	for i := len(held) - 1; i >= 0; i-- {
		events = append(events, keyEvent(input.KeyUp, held[i]))
	}
	return events, nil
}

// pressChord dispatches a chord on the page.
func pressChord(ctx context.Context, keys []string) error {
	events, err := chordEvents(keys)
	if err != nil {
		return err
	}
	actions := make([]chromedp.Action, len(events))
	for i, e := range events {
		actions[i] = e
	}
	return chromedp.Run(ctx, actions...)
}
