// File: internal/driver/marker.go
package driver

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// markerScript drops a red circle at the target point and removes it after
// two seconds. Purely for humans watching a headful session; the pointer
// action does not depend on it.
const markerScript = `(() => {
	const m = document.createElement('div');
	m.style.position = 'fixed';
	m.style.left = '%dpx';
	m.style.top = '%dpx';
	m.style.width = '20px';
	m.style.height = '20px';
	m.style.marginLeft = '-10px';
	m.style.marginTop = '-10px';
	m.style.borderRadius = '50%%';
	m.style.border = '3px solid red';
	m.style.zIndex = '2147483647';
	m.style.pointerEvents = 'none';
	document.body.appendChild(m);
	setTimeout(() => m.remove(), 2000);
})()`

// showMarker renders the transient highlight at (x, y). Failures are
// ignored: a page that rejects script injection should not fail the action.
func showMarker(ctx context.Context, x, y int) {
	script := fmt.Sprintf(markerScript, x, y)
	_ = chromedp.Run(ctx, chromedp.Evaluate(script, nil))
}
