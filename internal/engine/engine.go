// Package engine holds editable document state: atomic transactions over
// the doc tree, position mapping, change events, bookmarks and an undo
// history.
package engine

import (
	"errors"
	"sort"

	"netlabs/api/internal/doc"
)

// HistoryDepth bounds the undo stack.
const HistoryDepth = 100

var (
	// ErrReadOnly is returned when a document change is dispatched to a
	// read-only engine.
	ErrReadOnly = errors.New("editor is read-only")
)

// EventKind distinguishes engine events.
type EventKind int

const (
	// EventSelection fires when only the selection or stored marks changed.
	EventSelection EventKind = iota
	// EventTransaction fires when the document changed.
	EventTransaction
	// EventScroll fires when the surface scrolled.
	EventScroll
)

func (k EventKind) String() string {
	switch k {
	case EventSelection:
		return "selection"
	case EventTransaction:
		return "transaction"
	case EventScroll:
		return "scroll"
	}
	return "unknown"
}

// Event is delivered to listeners after a state change.
type Event struct {
	Kind  EventKind
	State State
}

// Listener receives engine events.
type Listener func(Event)

// Engine owns the current State. It is not safe for concurrent use.
type Engine struct {
	state     State
	editable  bool
	listeners map[int]Listener
	nextID    int
	undo      []State
	redo      []State
	bookmarks map[*Bookmark]struct{}
}

// New creates an editable engine over a normalized copy of d with the
// cursor at the first text position.
func New(d *doc.Node) *Engine {
	d = doc.Normalize(d)
	return &Engine{
		state:     State{Doc: d, Selection: Cursor(doc.NearestTextPos(d, 0))},
		editable:  true,
		listeners: make(map[int]Listener),
		bookmarks: make(map[*Bookmark]struct{}),
	}
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state
}

// Editable reports whether document changes are accepted.
func (e *Engine) Editable() bool {
	return e.editable
}

// SetEditable toggles read-only mode.
func (e *Engine) SetEditable(editable bool) {
	e.editable = editable
}

// Begin starts a transaction from the current state.
func (e *Engine) Begin() *Transaction {
	return newTransaction(e.state)
}

// Dispatch commits tr. A failed transaction leaves the state untouched and
// returns the step error.
func (e *Engine) Dispatch(tr *Transaction) error {
	if tr.err != nil {
		return tr.err
	}
	if tr.DocChanged() && !e.editable {
		return ErrReadOnly
	}
	next := State{
		Doc:         tr.doc,
		Selection:   tr.Selection().clamp(tr.doc.ContentSize()),
		StoredMarks: e.state.StoredMarks,
	}
	switch {
	case tr.marksSet:
		next.StoredMarks = tr.storedMarks
	case tr.DocChanged() || next.Selection != e.state.Selection:
		next.StoredMarks = nil
	}

	kind := EventSelection
	if tr.DocChanged() {
		kind = EventTransaction
		if !tr.noHistory {
			e.pushUndo(e.state)
			e.redo = nil
		}
		for b := range e.bookmarks {
			b.remap(tr.mapping)
			b.clamp(next.Doc.ContentSize())
		}
	}
	e.state = next
	e.emit(Event{Kind: kind, State: next})
	return nil
}

// Scrolled notifies listeners that the surface scrolled.
func (e *Engine) Scrolled() {
	e.emit(Event{Kind: EventScroll, State: e.state})
}

// Subscribe registers l and returns a function removing it. The returned
// function may be called any number of times.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	return func() {
		delete(e.listeners, id)
	}
}

// ListenerCount returns the number of registered listeners.
func (e *Engine) ListenerCount() int {
	return len(e.listeners)
}

func (e *Engine) emit(ev Event) {
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if l, ok := e.listeners[id]; ok {
			l(ev)
		}
	}
}

// Bookmark starts tracking [from, to].
func (e *Engine) Bookmark(from, to int) *Bookmark {
	b := &Bookmark{from: min(from, to), to: max(from, to), engine: e}
	b.clamp(e.state.Doc.ContentSize())
	e.bookmarks[b] = struct{}{}
	return b
}

func (e *Engine) pushUndo(s State) {
	e.undo = append(e.undo, s)
	if len(e.undo) > HistoryDepth {
		e.undo = e.undo[len(e.undo)-HistoryDepth:]
	}
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo() bool {
	return e.editable && len(e.undo) > 0
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo() bool {
	return e.editable && len(e.redo) > 0
}

// Undo restores the state before the last recorded transaction.
func (e *Engine) Undo() bool {
	if !e.CanUndo() {
		return false
	}
	prev := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, e.state)
	e.restore(prev)
	return true
}

// Redo reapplies the last undone transaction.
func (e *Engine) Redo() bool {
	if !e.CanRedo() {
		return false
	}
	next := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	e.pushUndo(e.state)
	e.restore(next)
	return true
}

// Reset replaces the document and clears the history.
func (e *Engine) Reset(d *doc.Node) {
	d = doc.Normalize(d)
	e.undo, e.redo = nil, nil
	e.restore(State{Doc: d, Selection: Cursor(doc.NearestTextPos(d, 0))})
}

func (e *Engine) restore(s State) {
	s.StoredMarks = nil
	for b := range e.bookmarks {
		b.clamp(s.Doc.ContentSize())
	}
	e.state = s
	e.emit(Event{Kind: EventTransaction, State: s})
}
