package engine

import "netlabs/api/internal/doc"

// Selection is a text selection. Anchor is the fixed end, Head the end that
// moves with shift-navigation. A collapsed selection is a cursor.
type Selection struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// Cursor returns a collapsed selection at pos.
func Cursor(pos int) Selection {
	return Selection{Anchor: pos, Head: pos}
}

// From is the lower end of the selection.
func (s Selection) From() int {
	return min(s.Anchor, s.Head)
}

// To is the upper end of the selection.
func (s Selection) To() int {
	return max(s.Anchor, s.Head)
}

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool {
	return s.Anchor == s.Head
}

// Range returns the selection as an ordered range.
func (s Selection) Range() doc.Range {
	return doc.Range{From: s.From(), To: s.To()}
}

func (s Selection) clamp(size int) Selection {
	return Selection{
		Anchor: min(max(s.Anchor, 0), size),
		Head:   min(max(s.Head, 0), size),
	}
}

// State is an immutable snapshot of the editing state.
type State struct {
	Doc       *doc.Node
	Selection Selection
	// StoredMarks override the marks the next typed text receives. Nil
	// means "inherit from the text before the cursor".
	StoredMarks []doc.Mark
}
