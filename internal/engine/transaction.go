package engine

import (
	"fmt"

	"netlabs/api/internal/doc"
)

// Transaction accumulates document steps against a working copy. Steps
// apply immediately to the copy; the first failing step poisons the
// transaction and later steps are skipped, so Dispatch either commits all
// steps or none.
type Transaction struct {
	before      State
	doc         *doc.Node
	selection   *Selection
	selAt       int
	storedMarks []doc.Mark
	marksSet    bool
	mapping     Mapping
	noHistory   bool
	err         error
}

func newTransaction(state State) *Transaction {
	return &Transaction{before: state, doc: state.Doc}
}

// Doc returns the working document.
func (tr *Transaction) Doc() *doc.Node {
	return tr.doc
}

// Err returns the error of the first failed step.
func (tr *Transaction) Err() error {
	return tr.err
}

// DocChanged reports whether any step altered the document.
func (tr *Transaction) DocChanged() bool {
	return tr.doc != tr.before.Doc
}

// Mapping returns the position mapping of the steps applied so far.
func (tr *Transaction) Mapping() Mapping {
	return tr.mapping
}

// Selection returns the selection the transaction would commit with: the
// last explicitly set selection, or the starting one, mapped through the
// steps applied after it.
func (tr *Transaction) Selection() Selection {
	sel, steps := tr.before.Selection, tr.mapping
	if tr.selection != nil {
		sel, steps = *tr.selection, tr.mapping[tr.selAt:]
	}
	return Selection{Anchor: steps.Map(sel.Anchor, 1), Head: steps.Map(sel.Head, 1)}
}

// step applies fn to the working document. [from, to] is the region the
// step replaces; the size change of the document is attributed to it.
func (tr *Transaction) step(name string, from, to int, fn func(*doc.Node) (*doc.Node, error)) *Transaction {
	if tr.err != nil {
		return tr
	}
	oldSize := tr.doc.ContentSize()
	out, err := fn(tr.doc)
	if err != nil {
		tr.err = fmt.Errorf("%s: %w", name, err)
		return tr
	}
	delta := out.ContentSize() - oldSize
	if to > from || delta != 0 {
		tr.mapping = append(tr.mapping, StepMap{Start: from, OldSize: to - from, NewSize: to - from + delta})
	}
	tr.doc = out
	return tr
}

// InsertText inserts text carrying marks at pos.
func (tr *Transaction) InsertText(pos int, text string, marks []doc.Mark) *Transaction {
	return tr.step("insert text", pos, pos, func(d *doc.Node) (*doc.Node, error) {
		return doc.InsertText(d, pos, text, marks)
	})
}

// InsertInline inserts an inline node such as a hard break.
func (tr *Transaction) InsertInline(pos int, node *doc.Node) *Transaction {
	return tr.step("insert inline", pos, pos, func(d *doc.Node) (*doc.Node, error) {
		return doc.InsertInline(d, pos, node)
	})
}

// Delete removes [from, to), joining textblocks cut by the range.
func (tr *Transaction) Delete(from, to int) *Transaction {
	from, to = min(from, to), max(from, to)
	return tr.step("delete", from, to, func(d *doc.Node) (*doc.Node, error) {
		return doc.DeleteRange(d, from, to)
	})
}

// Replace replaces the sibling range [from, to) with nodes.
func (tr *Transaction) Replace(from, to int, nodes ...*doc.Node) *Transaction {
	from, to = min(from, to), max(from, to)
	return tr.step("replace", from, to, func(d *doc.Node) (*doc.Node, error) {
		return doc.ReplaceWith(d, from, to, nodes...)
	})
}

// SetBlockType converts the textblock at pos.
func (tr *Transaction) SetBlockType(pos int, typ string, attrs map[string]any) *Transaction {
	return tr.step("set block type", pos, pos, func(d *doc.Node) (*doc.Node, error) {
		return doc.SetBlockType(d, pos, typ, attrs)
	})
}

// Wrap wraps the textblock at pos into wrapper (and item, for lists).
func (tr *Transaction) Wrap(pos int, wrapper, item string) *Transaction {
	if tr.err != nil {
		return tr
	}
	rp, err := tr.doc.Resolve(pos)
	if err != nil {
		tr.err = fmt.Errorf("wrap: %w", err)
		return tr
	}
	before, after := rp.Before(rp.Depth()), rp.After(rp.Depth())
	out, added, err := doc.Wrap(tr.doc, pos, wrapper, item)
	if err != nil {
		tr.err = fmt.Errorf("wrap: %w", err)
		return tr
	}
	tr.mapping = append(tr.mapping,
		StepMap{Start: before, NewSize: added},
		StepMap{Start: after + added, NewSize: added},
	)
	tr.doc = out
	return tr
}

// Split splits the textblock at pos and puts the cursor at the start of
// the second half.
func (tr *Transaction) Split(pos int) *Transaction {
	var cursor int
	tr.step("split", pos, pos, func(d *doc.Node) (*doc.Node, error) {
		out, c, err := doc.SplitBlock(d, pos)
		cursor = c
		return out, err
	})
	if tr.err == nil {
		tr.SetSelection(Cursor(cursor))
	}
	return tr
}

// JoinBackward applies Backspace semantics at the start of the textblock
// at pos. It reports whether anything was joined, lifted or reset.
func (tr *Transaction) JoinBackward(pos int) bool {
	if tr.err != nil {
		return false
	}
	out, cursor, ok := doc.JoinBackward(tr.doc, pos)
	if !ok {
		return false
	}
	if removed := tr.doc.ContentSize() - out.ContentSize(); removed > 0 {
		start := max(pos-removed, 0)
		tr.mapping = append(tr.mapping, StepMap{Start: start, OldSize: pos - start})
	}
	tr.doc = out
	tr.SetSelection(Cursor(cursor))
	return true
}

// AddMark applies mark to [from, to).
func (tr *Transaction) AddMark(from, to int, mark doc.Mark) *Transaction {
	return tr.step("add mark", from, from, func(d *doc.Node) (*doc.Node, error) {
		return doc.AddMark(d, from, to, mark)
	})
}

// RemoveMark strips marks of markType from [from, to).
func (tr *Transaction) RemoveMark(from, to int, markType string) *Transaction {
	return tr.step("remove mark", from, from, func(d *doc.Node) (*doc.Node, error) {
		return doc.RemoveMark(d, from, to, markType)
	})
}

// SetNodeAttrs merges attrs into the node after pos.
func (tr *Transaction) SetNodeAttrs(pos int, attrs map[string]any) *Transaction {
	return tr.step("set attributes", pos, pos, func(d *doc.Node) (*doc.Node, error) {
		return doc.SetNodeAttrs(d, pos, attrs)
	})
}

// Fail poisons the transaction with err unless it already failed.
func (tr *Transaction) Fail(err error) *Transaction {
	if tr.err == nil {
		tr.err = err
	}
	return tr
}

// SetSelection sets the selection the transaction commits with.
func (tr *Transaction) SetSelection(sel Selection) *Transaction {
	tr.selection = &sel
	tr.selAt = len(tr.mapping)
	return tr
}

// SetStoredMarks sets the marks the next typed text receives.
func (tr *Transaction) SetStoredMarks(marks []doc.Mark) *Transaction {
	tr.storedMarks = marks
	tr.marksSet = true
	return tr
}

// NoHistory keeps the transaction out of the undo history.
func (tr *Transaction) NoHistory() *Transaction {
	tr.noHistory = true
	return tr
}
