package editor

import (
	"math"

	"netlabs/api/internal/engine"
)

// Point is a screen position.
type Point struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

const (
	popupGap     = 8
	popupPadding = 8
	menuWidth    = 320
	menuRow      = 36
	menuChrome   = 16
	menuMaxRows  = 8
)

// ComputeClampedPosition places a popup of size popup next to anchor so it
// stays inside the viewport. It prefers the space below the anchor and
// flips above it when the popup would overflow the bottom edge. Both axes
// are finally clamped to [padding, viewport-popup-padding], the lower bound
// winning when the popup is larger than the viewport.
func ComputeClampedPosition(anchor engine.Rect, popup, viewport engine.Size, padding float64) Point {
	left := math.Max(padding, math.Min(anchor.Left, viewport.Width-popup.Width-padding))

	top := anchor.Bottom + popupGap
	if top+popup.Height > viewport.Height-padding {
		top = anchor.Top - popupGap - popup.Height
	}
	top = math.Max(padding, math.Min(top, viewport.Height-popup.Height-padding))
	return Point{Left: left, Top: top}
}

// menuSize estimates the slash menu size for n items; an empty list still
// shows one row for the "no matching command" message.
func menuSize(n int) engine.Size {
	rows := min(max(n, 1), menuMaxRows)
	return engine.Size{Width: menuWidth, Height: float64(rows*menuRow + menuChrome)}
}
