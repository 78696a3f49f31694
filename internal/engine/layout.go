package engine

import (
	"errors"
	"fmt"
	"math"

	"netlabs/api/internal/doc"
)

// ErrNoCoords is returned when a position cannot be mapped to the screen.
var ErrNoCoords = errors.New("position has no screen coordinates")

// Rect is a screen-space rectangle.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Size is a width and height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Container describes the scroll container hosting the surface.
type Container struct {
	Top          float64 `json:"top"`
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
}

// Layout converts document positions to screen coordinates. It stands in
// for the rendered surface.
type Layout interface {
	CoordsAtPos(d *doc.Node, pos int) (Rect, error)
	Container(d *doc.Node) (Container, error)
	Viewport() Size
}

// GridLayout lays the document out on a fixed character grid: every
// textblock starts a new line and wraps at Columns, leaf blocks take one
// line, nesting indents by Indent.
type GridLayout struct {
	LineHeight   float64 `json:"lineHeight"`
	CharWidth    float64 `json:"charWidth"`
	Columns      int     `json:"columns"`
	Padding      float64 `json:"padding"`
	Indent       float64 `json:"indent"`
	ContainerTop float64 `json:"containerTop"`
	ScrollTop    float64 `json:"scrollTop"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

// NewGridLayout returns a grid for a viewport of the given size.
func NewGridLayout(width, height float64) *GridLayout {
	return &GridLayout{
		LineHeight: 24,
		CharWidth:  8,
		Columns:    80,
		Padding:    16,
		Indent:     24,
		Width:      width,
		Height:     height,
	}
}

// Viewport implements Layout.
func (g *GridLayout) Viewport() Size {
	return Size{Width: g.Width, Height: g.Height}
}

// Container implements Layout.
func (g *GridLayout) Container(d *doc.Node) (Container, error) {
	lines := g.lines(d)
	return Container{
		Top:          g.ContainerTop,
		ScrollTop:    g.ScrollTop,
		ScrollHeight: 2*g.Padding + float64(lines)*g.LineHeight,
	}, nil
}

// ScrollTo sets the scroll offset, bounded by the document height.
func (g *GridLayout) ScrollTo(d *doc.Node, top float64) {
	c, _ := g.Container(d)
	limit := math.Max(c.ScrollHeight-g.Height, 0)
	g.ScrollTop = math.Min(math.Max(top, 0), limit)
}

// CoordsAtPos implements Layout.
func (g *GridLayout) CoordsAtPos(d *doc.Node, pos int) (Rect, error) {
	if pos < 0 || pos > d.ContentSize() {
		return Rect{}, fmt.Errorf("%w: %d", ErrNoCoords, pos)
	}
	if g.Columns <= 0 {
		return Rect{}, fmt.Errorf("%w: grid has no columns", ErrNoCoords)
	}
	line, col, depth, found := 0, 0, 0, false
	current := 0
	var walk func(n *doc.Node, start, level int)
	walk = func(n *doc.Node, start, level int) {
		p := start
		for _, child := range n.Content {
			if found {
				return
			}
			size := child.NodeSize()
			switch {
			case child.IsTextblock():
				lines := g.blockLines(child)
				if pos < p+size {
					off := min(max(pos-p-1, 0), child.ContentSize())
					line, col, depth = current+off/g.Columns, off%g.Columns, level
					found = true
					return
				}
				current += lines
			case child.IsLeaf():
				if pos <= p {
					line, col, depth = current, 0, level
					found = true
					return
				}
				current++
			default:
				if pos == p {
					line, col, depth = current, 0, level
					found = true
					return
				}
				walk(child, p+1, level+1)
				if !found && pos < p+size {
					line, col, depth = max(current-1, 0), 0, level+1
					found = true
					return
				}
			}
			p += size
		}
	}
	walk(d, 0, 0)
	if !found {
		line, col = max(current-1, 0), 0
	}
	left := g.Padding + float64(depth)*g.Indent + float64(col)*g.CharWidth
	top := g.ContainerTop - g.ScrollTop + g.Padding + float64(line)*g.LineHeight
	return Rect{Left: left, Top: top, Right: left + g.CharWidth, Bottom: top + g.LineHeight}, nil
}

func (g *GridLayout) lines(d *doc.Node) int {
	total := 0
	var walk func(n *doc.Node)
	walk = func(n *doc.Node) {
		for _, child := range n.Content {
			switch {
			case child.IsTextblock():
				total += g.blockLines(child)
			case child.IsLeaf():
				total++
			default:
				walk(child)
			}
		}
	}
	walk(d)
	return total
}

func (g *GridLayout) blockLines(tb *doc.Node) int {
	if g.Columns <= 0 {
		return 1
	}
	size := tb.ContentSize()
	return max(1, (size+g.Columns-1)/g.Columns)
}
