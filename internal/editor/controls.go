package editor

import (
	"errors"
	"fmt"
	"math"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

var (
	// ErrNoBlock is returned by block actions without a cursor in a block.
	ErrNoBlock = errors.New("place the cursor inside a block first")
	// ErrClipboard wraps clipboard write failures.
	ErrClipboard = errors.New("could not copy to clipboard")
)

// Element ids of the floating controls, for outside-click checks.
const (
	QuickMenuID      = "block-quick-menu"
	QuickTriggerID   = "block-quick-trigger"
	ActionsMenuID    = "block-actions-menu"
	ActionsTriggerID = "block-actions-trigger"
)

const (
	controlsLeadIn    = 2
	controlsMinOffset = 8
	controlsBottomGap = 48
)

// MenuKind names a floating-controls menu.
type MenuKind string

const (
	MenuNone    MenuKind = ""
	MenuQuick   MenuKind = "quick"
	MenuActions MenuKind = "actions"
)

// ControlsState is the visible state of the floating block controls.
type ControlsState struct {
	Visible        bool     `json:"visible"`
	VerticalOffset float64  `json:"verticalOffset"`
	OpenMenu       MenuKind `json:"openMenu,omitempty"`
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// ControlsOffset converts a block's screen rectangle into the scroll
// container's coordinates and clamps it to [8, scrollHeight-48]. The lower
// bound wins for containers shorter than that range.
func ControlsOffset(rect engine.Rect, c engine.Container) float64 {
	y := rect.Top - c.Top + c.ScrollTop + controlsLeadIn
	return math.Max(controlsMinOffset, math.Min(y, c.ScrollHeight-controlsBottomGap))
}

// Controls is the per-block affordance: the quick-insert menu and the
// block-actions menu, positioned next to the active block.
type Controls struct {
	engine    *engine.Engine
	layout    engine.Layout
	clipboard Clipboard
	openSlash func(trigger int)
	state     ControlsState
}

// NewControls creates hidden controls. openSlash opens the slash menu for
// a trigger inserted by the quick menu.
func NewControls(e *engine.Engine, layout engine.Layout, clipboard Clipboard, openSlash func(trigger int)) *Controls {
	return &Controls{engine: e, layout: layout, clipboard: clipboard, openSlash: openSlash}
}

// State returns the visible state.
func (c *Controls) State() ControlsState {
	return c.state
}

// Recompute derives visibility and offset from the current state. Any
// failure hides the controls for this cycle.
func (c *Controls) Recompute() {
	offset, ok := c.offset()
	if !ok {
		c.state = ControlsState{}
		return
	}
	c.state.Visible = true
	c.state.VerticalOffset = offset
}

func (c *Controls) offset() (float64, bool) {
	if !c.engine.Editable() {
		return 0, false
	}
	st := c.engine.State()
	ref := LocateActiveBlock(st)
	if ref == nil {
		return 0, false
	}
	rect, err := c.layout.CoordsAtPos(st.Doc, ref.RangeStart)
	if err != nil {
		return 0, false
	}
	container, err := c.layout.Container(st.Doc)
	if err != nil {
		return 0, false
	}
	return ControlsOffset(rect, container), true
}

// ToggleMenu opens kind, closing the other menu, or closes kind when it
// is already open.
func (c *Controls) ToggleMenu(kind MenuKind) {
	if !c.state.Visible || c.state.OpenMenu == kind {
		c.state.OpenMenu = MenuNone
		return
	}
	c.state.OpenMenu = kind
}

// CloseMenu closes whichever menu is open.
func (c *Controls) CloseMenu() {
	c.state.OpenMenu = MenuNone
}

// PointerDown closes the open menu when the pointer went down outside it
// and outside its trigger button.
func (c *Controls) PointerDown(target Target) {
	var menuID, triggerID string
	switch c.state.OpenMenu {
	case MenuQuick:
		menuID, triggerID = QuickMenuID, QuickTriggerID
	case MenuActions:
		menuID, triggerID = ActionsMenuID, ActionsTriggerID
	default:
		return
	}
	if !target.Within(menuID) && !target.Within(triggerID) {
		c.CloseMenu()
	}
}

func (c *Controls) block() (*BlockReference, error) {
	ref := LocateActiveBlock(c.engine.State())
	if ref == nil {
		return nil, ErrNoBlock
	}
	return ref, nil
}

// Duplicate inserts a copy of the active block directly after it.
func (c *Controls) Duplicate() error {
	defer c.CloseMenu()
	ref, err := c.block()
	if err != nil {
		return err
	}
	tr := c.engine.Begin().Replace(ref.RangeEnd, ref.RangeEnd, ref.Node.Clone())
	if err := c.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("duplicate block: %w", err)
	}
	return nil
}

// Copy puts the active block's plain text on the clipboard.
func (c *Controls) Copy() error {
	defer c.CloseMenu()
	ref, err := c.block()
	if err != nil {
		return err
	}
	if c.clipboard == nil {
		return ErrClipboard
	}
	if err := c.clipboard.WriteText(doc.PlainText(ref.Node)); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	return nil
}

// Delete removes the active block. The document stays valid; removing the
// last block leaves an empty paragraph.
func (c *Controls) Delete() error {
	defer c.CloseMenu()
	ref, err := c.block()
	if err != nil {
		return err
	}
	tr := c.engine.Begin().Replace(ref.RangeStart, ref.RangeEnd)
	if tr.Err() == nil {
		tr.SetSelection(engine.Cursor(doc.NearestTextPos(tr.Doc(), ref.RangeStart)))
	}
	if err := c.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// InsertSlash starts a slash command below the active block, or in it when
// it is an empty textblock.
func (c *Controls) InsertSlash() error {
	defer c.CloseMenu()
	tr, err := c.insert(2, doc.Paragraph(doc.Text(TriggerChar)))
	if err != nil {
		return err
	}
	if err := c.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("insert slash command: %w", err)
	}
	if c.openSlash != nil {
		c.openSlash(c.engine.State().Selection.Head - 1)
	}
	return nil
}

// InsertDivider inserts a horizontal rule below the active block.
func (c *Controls) InsertDivider() error {
	defer c.CloseMenu()
	tr, err := c.insert(2, doc.Block(doc.TypeHorizontalRule, nil), doc.Paragraph())
	if err != nil {
		return err
	}
	if err := c.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("insert divider: %w", err)
	}
	return nil
}

// InsertCodeBlock inserts a code block holding a sample device
// configuration below the active block.
func (c *Controls) InsertCodeBlock() error {
	defer c.CloseMenu()
	tr, err := c.insert(1, doc.CodeBlock("", codeSnippet))
	if err != nil {
		return err
	}
	if err := c.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("insert code block: %w", err)
	}
	return nil
}

// insert places nodes relative to the active block: in place of an empty
// textblock, as a new item after a list item (or at the end of the item
// when nodes do not start with a textblock), otherwise right after the
// block.
func (c *Controls) insert(cursor int, nodes ...*doc.Node) (*engine.Transaction, error) {
	ref, err := c.block()
	if err != nil {
		return nil, err
	}
	tr := c.engine.Begin()
	switch {
	case ref.Node.IsTextblock():
		return insertBlocks(tr, ref.RangeStart+1, cursor, nodes...), nil
	case ref.Node.IsListItem() && !nodes[0].IsTextblock():
		return tr.Replace(ref.RangeEnd-1, ref.RangeEnd-1, nodes...).SetSelection(engine.Cursor(ref.RangeEnd - 1 + cursor)), nil
	case ref.Node.IsListItem():
		var attrs map[string]any
		if ref.Node.Type == doc.TypeTaskItem {
			attrs = map[string]any{"checked": false}
		}
		item := doc.Block(ref.Node.Type, attrs, nodes...)
		return tr.Replace(ref.RangeEnd, ref.RangeEnd, item).SetSelection(engine.Cursor(ref.RangeEnd + 1 + cursor)), nil
	default:
		return tr.Replace(ref.RangeEnd, ref.RangeEnd, nodes...).SetSelection(engine.Cursor(ref.RangeEnd + cursor)), nil
	}
}
