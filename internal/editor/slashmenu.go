package editor

import (
	"unicode"
	"unicode/utf8"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// TriggerChar opens the slash menu.
const TriggerChar = "/"

// SlashMenuID is the overlay element of the slash menu.
const SlashMenuID = "slash-menu"

// NoMatchText is shown when the query matches no command.
const NoMatchText = "No matching command"

// MenuState is the visible state of the slash menu.
type MenuState struct {
	Open          bool        `json:"open"`
	Query         string      `json:"query"`
	Items         []Command   `json:"items"`
	SelectedIndex int         `json:"selectedIndex"`
	Trigger       int         `json:"trigger"`
	Anchor        engine.Rect `json:"anchor"`
	Position      Point       `json:"position"`
	// Visible is false when the anchor had no coordinates this cycle.
	Visible bool `json:"visible"`
}

// Empty reports whether the open menu has nothing to offer.
func (s MenuState) Empty() bool {
	return s.Open && len(s.Items) == 0
}

// SlashMenu drives the slash-command popup: CLOSED until the trigger is
// typed, OPEN while the cursor stays behind the trigger in the same
// textblock, then CLOSED again on commit or cancel.
type SlashMenu struct {
	engine   *engine.Engine
	layout   engine.Layout
	overlays OverlayHost
	commands []Command
	apply    func(Command, doc.Range) error

	state       MenuState
	unsubscribe func()
}

// NewSlashMenu creates a closed menu. apply runs a committed command over
// the range covering the trigger and the query.
func NewSlashMenu(e *engine.Engine, layout engine.Layout, overlays OverlayHost, commands []Command, apply func(Command, doc.Range) error) *SlashMenu {
	return &SlashMenu{
		engine:   e,
		layout:   layout,
		overlays: overlays,
		commands: commands,
		apply:    apply,
	}
}

// State returns the visible state.
func (m *SlashMenu) State() MenuState {
	return m.state
}

// IsOpen reports whether the menu is open.
func (m *SlashMenu) IsOpen() bool {
	return m.state.Open
}

// CanTrigger reports whether typing the trigger at the collapsed selection
// of state should open the menu: inside a textblock other than a code
// block, at its start or after whitespace.
func CanTrigger(state engine.State) bool {
	if !state.Selection.Empty() {
		return false
	}
	rp, err := state.Doc.Resolve(state.Selection.Head)
	if err != nil {
		return false
	}
	parent := rp.Parent()
	if !parent.IsTextblock() || parent.Type == doc.TypeCodeBlock {
		return false
	}
	if rp.ParentOffset() == 0 {
		return true
	}
	before := state.Doc.TextBetween(state.Selection.Head-1, state.Selection.Head, "")
	if before == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(before)
	return unicode.IsSpace(r)
}

// Open opens the menu for a trigger character at position trigger. An
// open menu is torn down first.
func (m *SlashMenu) Open(trigger int) {
	m.Close()
	m.overlays.Mount(SlashMenuID)
	m.unsubscribe = m.engine.Subscribe(func(ev engine.Event) {
		if ev.Kind == engine.EventScroll {
			m.reposition()
		}
	})
	m.state = MenuState{Open: true, Trigger: trigger, Items: FilterCommands(m.commands, "")}
	m.Update()
}

// Close closes the menu, unmounting its overlay and dropping its scroll
// listener. Closing a closed menu does nothing.
func (m *SlashMenu) Close() {
	if !m.state.Open {
		return
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.overlays.Unmount(SlashMenuID)
	m.state = MenuState{}
}

// Update re-derives the query, items and placement from the current state,
// or cancels the menu when the trigger context is gone.
func (m *SlashMenu) Update() {
	if !m.state.Open {
		return
	}
	query, ok := m.query()
	if !ok {
		m.Close()
		return
	}
	items := FilterCommands(m.commands, query)
	switch {
	case len(items) != len(m.state.Items):
		m.state.SelectedIndex = 0
	case len(items) == 0:
		m.state.SelectedIndex = 0
	default:
		m.state.SelectedIndex = min(max(m.state.SelectedIndex, 0), len(items)-1)
	}
	m.state.Query = query
	m.state.Items = items
	m.reposition()
}

// query returns the text typed after the trigger, or ok=false when the
// cursor left the triggered range.
func (m *SlashMenu) query() (string, bool) {
	if !m.engine.Editable() {
		return "", false
	}
	st := m.engine.State()
	if !st.Selection.Empty() {
		return "", false
	}
	trigger, head := m.state.Trigger, st.Selection.Head
	if head < trigger+1 {
		return "", false
	}
	rt, err := st.Doc.Resolve(trigger)
	if err != nil {
		return "", false
	}
	rh, err := st.Doc.Resolve(head)
	if err != nil || !rt.Parent().IsTextblock() || rt.Depth() != rh.Depth() || rt.Start(rt.Depth()) != rh.Start(rh.Depth()) {
		return "", false
	}
	if st.Doc.TextBetween(trigger, trigger+1, "") != TriggerChar {
		return "", false
	}
	return st.Doc.TextBetween(trigger+1, head, ""), true
}

func (m *SlashMenu) reposition() {
	if !m.state.Open {
		return
	}
	rect, err := m.layout.CoordsAtPos(m.engine.State().Doc, m.state.Trigger)
	if err != nil {
		m.state.Visible = false
		return
	}
	m.state.Anchor = rect
	m.state.Position = ComputeClampedPosition(rect, menuSize(len(m.state.Items)), m.layout.Viewport(), popupPadding)
	m.state.Visible = true
}

// Move moves the highlight by delta with wraparound. It does nothing on an
// empty list.
func (m *SlashMenu) Move(delta int) {
	n := len(m.state.Items)
	if !m.state.Open || n == 0 {
		return
	}
	m.state.SelectedIndex = ((m.state.SelectedIndex+delta)%n + n) % n
}

// Commit applies the highlighted command. It reports false, without
// closing, when nothing can be committed.
func (m *SlashMenu) Commit() (bool, error) {
	if !m.state.Open || len(m.state.Items) == 0 {
		return false, nil
	}
	cmd := m.state.Items[m.state.SelectedIndex]
	rng := doc.Range{From: m.state.Trigger, To: m.engine.State().Selection.Head}
	m.Close()
	return true, m.apply(cmd, rng)
}

// Select commits the item at index i, as a pointer click does.
func (m *SlashMenu) Select(i int) (bool, error) {
	if !m.state.Open || i < 0 || i >= len(m.state.Items) {
		return false, nil
	}
	m.state.SelectedIndex = i
	return m.Commit()
}

// HandleKey handles navigation keys while the menu is open and reports
// whether the key was consumed.
func (m *SlashMenu) HandleKey(key Key) (bool, error) {
	if !m.state.Open {
		return false, nil
	}
	switch key {
	case KeyArrowDown:
		m.Move(1)
		return true, nil
	case KeyArrowUp:
		m.Move(-1)
		return true, nil
	case KeyEnter:
		return m.Commit()
	case KeyEscape:
		m.Close()
		return true, nil
	}
	return false, nil
}
