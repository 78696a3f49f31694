package editor

import (
	"fmt"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// BubbleState is the visible state of the selection formatting menu.
type BubbleState struct {
	Visible     bool     `json:"visible"`
	ActiveMarks []string `json:"activeMarks"`
	Href        string   `json:"href,omitempty"`
	Position    Point    `json:"position"`
}

var bubbleSize = engine.Size{Width: 280, Height: 40}

// Bubble is the formatting menu shown over a range selection.
type Bubble struct {
	engine *engine.Engine
	layout engine.Layout
	urls   URLRequester
	report func(error)
	state  BubbleState
}

// NewBubble creates a hidden bubble menu.
func NewBubble(e *engine.Engine, layout engine.Layout, urls URLRequester, report func(error)) *Bubble {
	return &Bubble{engine: e, layout: layout, urls: urls, report: report}
}

// State returns the visible state.
func (b *Bubble) State() BubbleState {
	return b.state
}

// Recompute shows the menu above a range selection in an editable editor.
func (b *Bubble) Recompute() {
	st := b.engine.State()
	if !b.engine.Editable() || st.Selection.Empty() {
		b.state = BubbleState{}
		return
	}
	rect, err := b.layout.CoordsAtPos(st.Doc, st.Selection.From())
	if err != nil {
		b.state = BubbleState{}
		return
	}
	marks := doc.RangeMarks(st.Doc, st.Selection.From(), st.Selection.To())
	state := BubbleState{Visible: true, ActiveMarks: make([]string, 0, len(marks))}
	for _, m := range marks {
		state.ActiveMarks = append(state.ActiveMarks, m.Type)
		if m.Type == doc.MarkLink {
			state.Href, _ = m.Attrs["href"].(string)
		}
	}
	above := engine.Rect{Left: rect.Left, Top: rect.Top - bubbleSize.Height - 2*popupGap, Bottom: rect.Top - bubbleSize.Height - popupGap}
	state.Position = ComputeClampedPosition(above, bubbleSize, b.layout.Viewport(), popupPadding)
	b.state = state
}

// ToggleMark toggles markType over the selection, or in the stored marks
// for a cursor.
func (b *Bubble) ToggleMark(markType string) error {
	st := b.engine.State()
	tr := b.engine.Begin()
	sel := st.Selection
	if sel.Empty() {
		marks := st.StoredMarks
		if marks == nil {
			marks = doc.MarksAt(st.Doc, sel.Head)
		}
		if doc.HasMark(marks, markType) {
			marks = doc.RemoveFromSet(marks, markType)
		} else {
			marks = doc.AddToSet(marks, doc.Mark{Type: markType})
		}
		if marks == nil {
			marks = []doc.Mark{}
		}
		tr.SetStoredMarks(marks)
	} else if doc.HasMark(doc.RangeMarks(st.Doc, sel.From(), sel.To()), markType) {
		tr.RemoveMark(sel.From(), sel.To(), markType)
	} else {
		tr.AddMark(sel.From(), sel.To(), doc.Mark{Type: markType})
	}
	if err := b.engine.Dispatch(tr); err != nil {
		return fmt.Errorf("toggle %s: %w", markType, err)
	}
	return nil
}

// Link asks for a URL for the selection. When the selection already
// carries a link the request is prefilled and allows removing it.
func (b *Bubble) Link() error {
	st := b.engine.State()
	if st.Selection.Empty() {
		return fmt.Errorf("%w: select the text to link", doc.ErrPosition)
	}
	from, to := st.Selection.From(), st.Selection.To()
	req := URLRequest{Kind: DialogLink, Mode: ModeLink}
	if link, ok := doc.FindMark(doc.RangeMarks(st.Doc, from, to), doc.MarkLink); ok {
		req.Value, _ = link.Attrs["href"].(string)
		req.AllowUnset = true
	}
	mark := b.engine.Bookmark(from, to)
	req.Cancelled = mark.Release
	req.Done = func(url *string) {
		defer mark.Release()
		from, to := mark.Range()
		tr := b.engine.Begin()
		if url == nil {
			tr.RemoveMark(from, to, doc.MarkLink)
		} else {
			tr.AddMark(from, to, doc.Link(*url))
		}
		if err := b.engine.Dispatch(tr); err != nil && b.report != nil {
			b.report(fmt.Errorf("link: %w", err))
		}
	}
	b.urls.RequestURL(req)
	return nil
}
