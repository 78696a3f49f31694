package editor

import (
	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// BlockReference is the block the cursor is in and its full extent. It is
// only valid for the state it was computed from.
type BlockReference struct {
	Node       *doc.Node `json:"node"`
	RangeStart int       `json:"rangeStart"`
	RangeEnd   int       `json:"rangeEnd"`
	Depth      int       `json:"depth"`
}

// LocateActiveBlock returns the innermost block around a collapsed
// selection. A textblock heading a list item resolves to the item. It
// returns nil for range selections and for a cursor directly in the root.
func LocateActiveBlock(state engine.State) *BlockReference {
	if state.Doc == nil || !state.Selection.Empty() {
		return nil
	}
	rp, err := state.Doc.Resolve(state.Selection.Head)
	if err != nil || rp.Depth() == 0 {
		return nil
	}
	d := rp.Depth()
	if d >= 2 && rp.Node(d).IsTextblock() && rp.Node(d-1).IsListItem() && rp.Index(d-1) == 0 {
		d--
	}
	return &BlockReference{
		Node:       rp.Node(d),
		RangeStart: rp.Before(d),
		RangeEnd:   rp.After(d),
		Depth:      d,
	}
}
