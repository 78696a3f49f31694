package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
	"netlabs/api/internal/htmlcodec"
)

var (
	// ErrNotReady is returned by every action of an editor whose initial
	// value could not be loaded.
	ErrNotReady = errors.New("editor is not ready")
	// ErrSaveInProgress is returned when a save starts while another runs.
	ErrSaveInProgress = errors.New("a save is already in progress")
	// ErrSaveFailed marks save errors whose cause must not be shown to the
	// user. They are reported as "Save failed".
	ErrSaveFailed = errors.New("save failed")
)

// LoadingText replaces the surface of an editor that is not ready.
const LoadingText = "Loading editor…"

// Logger is the printf-style logger the editor writes diagnostics to.
type Logger interface {
	Printf(format string, v ...any)
}

// Config configures an Editor. The zero Config gives a read-only editor
// over an empty document.
type Config struct {
	Editable bool
	// Value is the initial HTML.
	Value string
	// IsSaving, when set, overrides the internal saving indicator.
	IsSaving *bool
	// OnChange receives the sanitized HTML after every document change.
	OnChange func(html string)
	// OnSave persists the sanitized HTML. A returned error is shown to the
	// user and keeps the editor dirty.
	OnSave func(ctx context.Context, html string) error
	// RequestURL collects URLs for links and images. Nil uses the
	// editor's own dialog.
	RequestURL URLRequester
	Clipboard  Clipboard
	Layout     engine.Layout
	Overlays   OverlayHost
	Logger     Logger
	// Commands replaces the registry used by the slash menu and RunCommand.
	Commands []Command
	Now      func() time.Time
}

// Editor is one editing surface. It is not safe for concurrent use.
type Editor struct {
	cfg      Config
	log      Logger
	now      func() time.Time
	engine   *engine.Engine
	layout   engine.Layout
	overlays OverlayHost
	urls     URLRequester
	commands []Command
	ready    bool

	menu     *SlashMenu
	controls *Controls
	bubble   *Bubble
	dialogs  *Dialogs

	notices []Notice
	html    string
	dirty   bool
	saving  bool
}

// New creates an editor from cfg.
func New(cfg Config) *Editor {
	e := &Editor{
		cfg:      cfg,
		log:      cfg.Logger,
		now:      cfg.Now,
		layout:   cfg.Layout,
		overlays: cfg.Overlays,
		urls:     cfg.RequestURL,
		dialogs:  &Dialogs{},
	}
	if e.log == nil {
		e.log = log.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.layout == nil {
		e.layout = engine.NewGridLayout(1024, 768)
	}
	if e.overlays == nil {
		e.overlays = &Overlays{}
	}
	if e.urls == nil {
		e.urls = e.dialogs
	}
	e.commands = cfg.Commands
	if e.commands == nil {
		e.commands = Commands()
	}

	d, err := htmlcodec.Parse(cfg.Value)
	if err != nil {
		e.log.Printf("editor: load initial value: %v", err)
		d = doc.NewDoc(doc.Paragraph())
	} else {
		e.ready = true
	}
	e.engine = engine.New(d)
	e.engine.SetEditable(cfg.Editable)
	e.menu = NewSlashMenu(e.engine, e.layout, e.overlays, e.commands, e.applyCommand)
	e.controls = NewControls(e.engine, e.layout, cfg.Clipboard, e.menu.Open)
	e.bubble = NewBubble(e.engine, e.layout, e.urls, e.report)
	e.html = htmlcodec.Serialize(e.engine.State().Doc)
	e.engine.Subscribe(e.sync)
	e.recompute()
	return e
}

// Engine exposes the underlying engine.
func (e *Editor) Engine() *engine.Engine {
	return e.engine
}

// Layout returns the layout the editor positions floating UI with.
func (e *Editor) Layout() engine.Layout {
	return e.layout
}

// Ready reports whether the initial value loaded.
func (e *Editor) Ready() bool {
	return e.ready
}

func (e *Editor) sync(ev engine.Event) {
	if ev.Kind == engine.EventTransaction {
		e.html = htmlcodec.Serialize(ev.State.Doc)
		e.dirty = true
		if e.cfg.OnChange != nil {
			e.cfg.OnChange(e.html)
		}
	}
	if ev.Kind != engine.EventScroll {
		e.menu.Update()
	}
	e.controls.Recompute()
	e.bubble.Recompute()
}

func (e *Editor) recompute() {
	e.menu.Update()
	e.controls.Recompute()
	e.bubble.Recompute()
}

func (e *Editor) notify(level NoticeLevel, message string) {
	e.notices = append(e.notices, Notice{Level: level, Message: message, At: e.now()})
}

// report turns an action error into an error notice.
func (e *Editor) report(err error) {
	if err == nil {
		return
	}
	e.log.Printf("editor: %v", err)
	e.notify(NoticeError, noticeMessage(err))
}

// do runs an action, reporting its error to the user as well as returning
// it.
func (e *Editor) do(fn func() error) error {
	if !e.ready {
		return ErrNotReady
	}
	if err := fn(); err != nil {
		e.report(err)
		return err
	}
	return nil
}

func (e *Editor) applyCommand(cmd Command, rng doc.Range) error {
	return cmd.Apply(Context{Engine: e.engine, Range: rng, URLs: e.urls, Report: e.report})
}

// RunCommand applies the configured command of the given kind at the
// current selection, as a toolbar would.
func (e *Editor) RunCommand(kind Kind) error {
	return e.do(func() error {
		for _, c := range e.commands {
			if c.Kind == kind {
				e.menu.Close()
				return e.applyCommand(c, doc.Range{})
			}
		}
		return fmt.Errorf("unknown command %d", kind)
	})
}

// HandleText inserts typed text, replacing a range selection. Newlines
// split blocks. Typing the trigger character where allowed opens the slash
// menu.
func (e *Editor) HandleText(text string) error {
	return e.do(func() error {
		if text == "" {
			return nil
		}
		st := e.engine.State()
		trigger := text == TriggerChar && CanTrigger(st)
		tr := e.engine.Begin()
		if !st.Selection.Empty() {
			tr.Delete(st.Selection.From(), st.Selection.To()).SetSelection(engine.Cursor(st.Selection.From()))
		}
		marks := st.StoredMarks
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				tr.Split(tr.Selection().Head)
				marks = nil
			}
			if line == "" {
				continue
			}
			pos := tr.Selection().Head
			m := marks
			if m == nil {
				m = doc.MarksAt(tr.Doc(), pos)
			}
			tr.InsertText(pos, line, m)
		}
		if err := e.engine.Dispatch(tr); err != nil {
			return fmt.Errorf("insert text: %w", err)
		}
		if trigger {
			e.menu.Open(e.engine.State().Selection.Head - 1)
		}
		return nil
	})
}

// HandleKey handles a key chord and reports whether it was consumed. Open
// dialogs see keys first, then the slash menu, then the controls menus.
func (e *Editor) HandleKey(key Key) (bool, error) {
	if !e.ready {
		return false, ErrNotReady
	}
	if e.dialogs.State().Open {
		switch key {
		case KeyEscape:
			e.dialogs.Cancel()
			return true, nil
		case KeyEnter:
			return true, e.dialogs.Confirm()
		}
	}
	if handled, err := e.menu.HandleKey(key); handled || err != nil {
		if err != nil {
			e.report(err)
		}
		return handled, err
	}
	if key == KeyEscape && e.controls.State().OpenMenu != MenuNone {
		e.controls.CloseMenu()
		return true, nil
	}
	if markType, ok := markKeys[key]; ok {
		return true, e.do(func() error { return e.bubble.ToggleMark(markType) })
	}

	var action func() error
	switch key {
	case KeyEnter:
		action = e.splitBlock
	case KeyShiftEnter:
		action = e.hardBreak
	case KeyBackspace:
		action = e.backspace
	case KeyDelete:
		action = e.deleteForward
	case KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown:
		action = func() error { return e.move(key) }
	case KeyUndo:
		action = func() error { e.engine.Undo(); return nil }
	case KeyRedo, KeyRedoAlt:
		action = func() error { e.engine.Redo(); return nil }
	case KeyLink:
		action = e.bubble.Link
	default:
		return false, nil
	}
	return true, e.do(action)
}

func (e *Editor) replaceSelection() *engine.Transaction {
	sel := e.engine.State().Selection
	tr := e.engine.Begin()
	if !sel.Empty() {
		tr.Delete(sel.From(), sel.To()).SetSelection(engine.Cursor(sel.From()))
	}
	return tr
}

func (e *Editor) splitBlock() error {
	tr := e.replaceSelection()
	tr.Split(tr.Selection().Head)
	if err := e.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("split block: %w", err)
	}
	return nil
}

func (e *Editor) hardBreak() error {
	tr := e.replaceSelection()
	tr.InsertInline(tr.Selection().Head, &doc.Node{Type: doc.TypeHardBreak})
	if err := e.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("hard break: %w", err)
	}
	return nil
}

func (e *Editor) backspace() error {
	st := e.engine.State()
	sel := st.Selection
	tr := e.engine.Begin()
	switch {
	case !sel.Empty():
		tr.Delete(sel.From(), sel.To()).SetSelection(engine.Cursor(sel.From()))
	default:
		rp, err := st.Doc.Resolve(sel.Head)
		if err != nil {
			return fmt.Errorf("backspace: %w", err)
		}
		if !rp.Parent().IsTextblock() {
			return nil
		}
		if rp.ParentOffset() == 0 {
			if !tr.JoinBackward(sel.Head) {
				return nil
			}
		} else {
			tr.Delete(sel.Head-1, sel.Head)
		}
	}
	if err := e.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("backspace: %w", err)
	}
	return nil
}

func (e *Editor) deleteForward() error {
	st := e.engine.State()
	sel := st.Selection
	tr := e.engine.Begin()
	if !sel.Empty() {
		tr.Delete(sel.From(), sel.To()).SetSelection(engine.Cursor(sel.From()))
	} else {
		blocks := textblocks(st.Doc)
		i := blockAt(blocks, sel.Head)
		switch {
		case i < 0:
			return nil
		case sel.Head < blocks[i].To:
			tr.Delete(sel.Head, sel.Head+1)
		case i+1 < len(blocks):
			tr.Delete(sel.Head, blocks[i+1].From).SetSelection(engine.Cursor(sel.Head))
		default:
			return nil
		}
	}
	if err := e.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// move handles the arrow keys: left and right step through text across
// block boundaries, up and down jump to the neighbouring textblock at the
// same offset.
func (e *Editor) move(key Key) error {
	st := e.engine.State()
	sel := st.Selection
	blocks := textblocks(st.Doc)
	i := blockAt(blocks, sel.Head)
	if i < 0 {
		return nil
	}
	target := sel.Head
	cur := blocks[i]
	switch key {
	case KeyArrowLeft:
		switch {
		case !sel.Empty():
			target = sel.From()
		case sel.Head > cur.From:
			target = sel.Head - 1
		case i > 0:
			target = blocks[i-1].To
		}
	case KeyArrowRight:
		switch {
		case !sel.Empty():
			target = sel.To()
		case sel.Head < cur.To:
			target = sel.Head + 1
		case i+1 < len(blocks):
			target = blocks[i+1].From
		}
	case KeyArrowUp, KeyArrowDown:
		next := i - 1
		if key == KeyArrowDown {
			next = i + 1
		}
		if next < 0 || next >= len(blocks) {
			break
		}
		b := blocks[next]
		target = min(b.From+(sel.Head-cur.From), b.To)
	}
	return e.engine.Dispatch(e.engine.Begin().SetSelection(engine.Cursor(target)))
}

// textblocks lists the content ranges of all textblocks in order.
func textblocks(d *doc.Node) []doc.Range {
	var out []doc.Range
	d.Descendants(func(n *doc.Node, pos int) bool {
		if n.IsTextblock() {
			out = append(out, doc.Range{From: pos + 1, To: pos + 1 + n.ContentSize()})
			return false
		}
		return true
	})
	return out
}

func blockAt(blocks []doc.Range, pos int) int {
	for i, b := range blocks {
		if pos >= b.From && pos <= b.To {
			return i
		}
	}
	return -1
}

// Select sets the selection. Positions are clamped to the document.
func (e *Editor) Select(anchor, head int) error {
	return e.do(func() error {
		size := e.engine.State().Doc.ContentSize()
		sel := engine.Selection{Anchor: min(max(anchor, 0), size), Head: min(max(head, 0), size)}
		return e.engine.Dispatch(e.engine.Begin().SetSelection(sel))
	})
}

// PointerDown reports a pointer press on the element path target.
func (e *Editor) PointerDown(target Target) {
	e.controls.PointerDown(target)
}

// Scrolled reports that the surface scrolled; floating UI re-anchors.
func (e *Editor) Scrolled() {
	e.engine.Scrolled()
}

// SetEditable switches between read-only and interactive mode. Going
// read-only closes every menu and dialog.
func (e *Editor) SetEditable(editable bool) {
	e.engine.SetEditable(editable)
	if !editable {
		e.dialogs.Cancel()
		e.controls.CloseMenu()
	}
	e.recompute()
}

// Editable reports whether the editor accepts changes.
func (e *Editor) Editable() bool {
	return e.engine.Editable()
}

// SelectCommand commits the slash-menu item at index i.
func (e *Editor) SelectCommand(i int) error {
	return e.do(func() error {
		_, err := e.menu.Select(i)
		return err
	})
}

// ToggleMenu opens or closes a floating-controls menu.
func (e *Editor) ToggleMenu(kind MenuKind) {
	e.controls.ToggleMenu(kind)
}

// Duplicate duplicates the active block.
func (e *Editor) Duplicate() error {
	return e.do(e.controls.Duplicate)
}

// Copy copies the active block's plain text to the clipboard.
func (e *Editor) Copy() error {
	return e.do(func() error {
		if err := e.controls.Copy(); err != nil {
			return err
		}
		e.notify(NoticeSuccess, "Copied to clipboard")
		return nil
	})
}

// DeleteBlock removes the active block.
func (e *Editor) DeleteBlock() error {
	return e.do(e.controls.Delete)
}

// QuickSlash starts a slash command from the quick-insert menu.
func (e *Editor) QuickSlash() error {
	return e.do(e.controls.InsertSlash)
}

// QuickDivider inserts a divider from the quick-insert menu.
func (e *Editor) QuickDivider() error {
	return e.do(e.controls.InsertDivider)
}

// QuickCodeBlock inserts the sample code block from the quick-insert menu.
func (e *Editor) QuickCodeBlock() error {
	return e.do(e.controls.InsertCodeBlock)
}

// ToggleMark toggles a mark over the selection.
func (e *Editor) ToggleMark(markType string) error {
	return e.do(func() error { return e.bubble.ToggleMark(markType) })
}

// Link starts the link flow for the selection.
func (e *Editor) Link() error {
	return e.do(e.bubble.Link)
}

// SetDialogValue edits the open dialog's input.
func (e *Editor) SetDialogValue(value string) error {
	return e.dialogs.SetValue(value)
}

// ConfirmDialog confirms the open dialog. Blank input keeps it open.
func (e *Editor) ConfirmDialog() error {
	return e.dialogs.Confirm()
}

// RemoveLink confirms the open dialog with "remove".
func (e *Editor) RemoveLink() error {
	return e.dialogs.Remove()
}

// CancelDialog closes the open dialog without applying anything.
func (e *Editor) CancelDialog() {
	e.dialogs.Cancel()
}

// Undo reverts the last change.
func (e *Editor) Undo() bool {
	return e.ready && e.engine.Undo()
}

// Redo reapplies the last reverted change.
func (e *Editor) Redo() bool {
	return e.ready && e.engine.Redo()
}

// HTML returns the current sanitized HTML.
func (e *Editor) HTML() string {
	return e.html
}

// Dirty reports whether there are changes not yet saved.
func (e *Editor) Dirty() bool {
	return e.dirty
}

// Saving reports whether a save is running. Config.IsSaving wins when set.
func (e *Editor) Saving() bool {
	if e.cfg.IsSaving != nil {
		return *e.cfg.IsSaving
	}
	return e.saving
}

// BeginSave marks a save as running and returns the HTML to persist.
func (e *Editor) BeginSave() (string, error) {
	if !e.ready {
		return "", ErrNotReady
	}
	if e.saving {
		return "", ErrSaveInProgress
	}
	e.saving = true
	return e.html, nil
}

// FinishSave completes a save started with BeginSave. On failure the
// editor stays dirty and shows the error; on success it is clean unless
// the document changed while saving.
func (e *Editor) FinishSave(snapshot string, err error) error {
	e.saving = false
	if err != nil {
		e.log.Printf("editor: save failed: %v", err)
		e.notify(NoticeError, saveMessage(err))
		return err
	}
	if e.html == snapshot {
		e.dirty = false
	}
	e.notify(NoticeSuccess, "Saved")
	return nil
}

// Save persists the document through Config.OnSave.
func (e *Editor) Save(ctx context.Context) error {
	html, err := e.BeginSave()
	if err != nil {
		return err
	}
	var saveErr error
	if e.cfg.OnSave != nil {
		saveErr = e.cfg.OnSave(ctx, html)
	}
	return e.FinishSave(html, saveErr)
}

// Notices returns and clears the pending notices.
func (e *Editor) Notices() []Notice {
	out := e.notices
	e.notices = nil
	return out
}
