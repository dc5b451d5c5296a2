// File: internal/virtualgrid/normalize.go

// Package virtualgrid converts coordinates expressed in the model's virtual
// screen space into physical viewport pixels. The calling model always
// reasons in a fixed virtual extent regardless of the real viewport size, so
// every coordinate-bearing tool argument passes through Normalize before it
// reaches the browser.
package virtualgrid

import "math"

// Normalize maps a coordinate v on a virtual axis of extent virtualExtent
// onto a physical axis of extent physicalExtent. The result is clamped to
// [0, physicalExtent-1] so out-of-range model output degrades to the nearest
// edge instead of failing the action.
func Normalize(v float64, virtualExtent, physicalExtent int) int {
	if virtualExtent <= 0 || physicalExtent <= 0 {
		return 0
	}
	scaled := int(math.Floor(v / float64(virtualExtent) * float64(physicalExtent)))
	if scaled < 0 {
		return 0
	}
	if scaled > physicalExtent-1 {
		return physicalExtent - 1
	}
	return scaled
}

// Point maps a virtual (x, y) pair onto the physical viewport.
func Point(x, y float64, virtualW, virtualH, physicalW, physicalH int) (int, int) {
	return Normalize(x, virtualW, physicalW), Normalize(y, virtualH, physicalH)
}
