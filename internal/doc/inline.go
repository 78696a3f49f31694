package doc

import "fmt"

// cutInline returns copies of the inline nodes covering the content offsets
// [from, to) of a textblock.
func cutInline(content []*Node, from, to int) []*Node {
	var out []*Node
	pos := 0
	for _, child := range content {
		size := child.NodeSize()
		end := pos + size
		if end > from && pos < to {
			if child.IsText() {
				runes := []rune(child.Text)
				s := max(from-pos, 0)
				e := min(to-pos, size)
				out = append(out, child.withText(string(runes[s:e])))
			} else {
				out = append(out, child)
			}
		}
		pos = end
	}
	return out
}

// joinInline concatenates inline runs and merges neighbours.
func joinInline(parts ...[]*Node) []*Node {
	var all []*Node
	for _, part := range parts {
		all = append(all, part...)
	}
	return normalizeInline(all)
}

// normalizeInline drops empty text and merges adjacent text nodes carrying
// the same marks.
func normalizeInline(content []*Node) []*Node {
	out := make([]*Node, 0, len(content))
	for _, child := range content {
		if child.IsText() && child.Text == "" {
			continue
		}
		if n := len(out); n > 0 && child.IsText() && out[n-1].IsText() && SameMarkSet(out[n-1].Marks, child.Marks) {
			out[n-1] = out[n-1].withText(out[n-1].Text + child.Text)
			continue
		}
		out = append(out, child)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapMarks(content []*Node, fn func([]Mark) []Mark) []*Node {
	out := make([]*Node, len(content))
	for i, child := range content {
		if !child.IsText() {
			out[i] = child
			continue
		}
		cp := child.shallow()
		cp.Marks = fn(child.Marks)
		out[i] = cp
	}
	return out
}

// textblockAt resolves pos and requires its parent to be a textblock.
func textblockAt(d *Node, pos int) (*ResolvedPos, error) {
	rp, err := d.Resolve(pos)
	if err != nil {
		return nil, err
	}
	if !rp.Parent().IsTextblock() {
		return nil, fmt.Errorf("%w: %d is not inside a textblock", ErrPosition, pos)
	}
	return rp, nil
}

// InsertText inserts text carrying marks at pos, which must point into a
// textblock. Marks are dropped inside code blocks.
func InsertText(d *Node, pos int, text string, marks []Mark) (*Node, error) {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return d, nil
	}
	parent := rp.Parent()
	if !parent.AllowsMarks() {
		marks = nil
	}
	off := rp.ParentOffset()
	size := parent.ContentSize()
	content := joinInline(
		cutInline(parent.Content, 0, off),
		[]*Node{Text(text, cloneMarks(marks)...)},
		cutInline(parent.Content, off, size),
	)
	return rp.replaceAt(rp.Depth(), parent.withContent(content)), nil
}

// InsertInline inserts a non-text inline node (a hard break) at pos.
func InsertInline(d *Node, pos int, node *Node) (*Node, error) {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return nil, err
	}
	parent := rp.Parent()
	if !node.IsInline() || !parent.AllowsMarks() {
		return nil, fmt.Errorf("%w: %s inside %s", ErrSchema, node.Type, parent.Type)
	}
	off := rp.ParentOffset()
	content := joinInline(
		cutInline(parent.Content, 0, off),
		[]*Node{node},
		cutInline(parent.Content, off, parent.ContentSize()),
	)
	return rp.replaceAt(rp.Depth(), parent.withContent(content)), nil
}

// DeleteText removes [from, to) inside a single textblock.
func DeleteText(d *Node, from, to int) (*Node, error) {
	if from > to {
		from, to = to, from
	}
	rf, err := textblockAt(d, from)
	if err != nil {
		return nil, err
	}
	rt, err := textblockAt(d, to)
	if err != nil {
		return nil, err
	}
	depth := rf.Depth()
	if rt.Depth() != depth || rf.Start(depth) != rt.Start(depth) {
		return nil, fmt.Errorf("%w: [%d,%d] spans textblocks", ErrPosition, from, to)
	}
	parent := rf.Parent()
	content := joinInline(
		cutInline(parent.Content, 0, rf.ParentOffset()),
		cutInline(parent.Content, rt.ParentOffset(), parent.ContentSize()),
	)
	return rf.replaceAt(depth, parent.withContent(content)), nil
}

// AddMark applies mark to all text in [from, to). A mark of the same type
// already present is replaced. Code blocks are skipped.
func AddMark(d *Node, from, to int, mark Mark) (*Node, error) {
	return changeMarks(d, from, to, func(marks []Mark) []Mark {
		return AddToSet(marks, mark)
	})
}

// RemoveMark strips marks of type markType from text in [from, to).
func RemoveMark(d *Node, from, to int, markType string) (*Node, error) {
	return changeMarks(d, from, to, func(marks []Mark) []Mark {
		return RemoveFromSet(marks, markType)
	})
}

func changeMarks(d *Node, from, to int, fn func([]Mark) []Mark) (*Node, error) {
	if from > to {
		from, to = to, from
	}
	if from < 0 || to > d.ContentSize() {
		return nil, fmt.Errorf("%w: [%d,%d]", ErrPosition, from, to)
	}
	return mapTextblocks(d, 0, from, to, func(tb *Node, lf, lt int) *Node {
		if !tb.AllowsMarks() {
			return tb
		}
		size := tb.ContentSize()
		content := joinInline(
			cutInline(tb.Content, 0, lf),
			mapMarks(cutInline(tb.Content, lf, lt), fn),
			cutInline(tb.Content, lt, size),
		)
		return tb.withContent(content)
	}), nil
}

// mapTextblocks calls fn for each textblock overlapping [from, to) with the
// overlap expressed in content offsets, rebuilding only changed ancestors.
func mapTextblocks(n *Node, start, from, to int, fn func(tb *Node, lf, lt int) *Node) *Node {
	if n.IsTextblock() {
		size := n.ContentSize()
		lf := min(max(from-start, 0), size)
		lt := min(max(to-start, 0), size)
		if lf >= lt {
			return n
		}
		return fn(n, lf, lt)
	}
	var content []*Node
	pos := start
	for i, child := range n.Content {
		cs := pos
		ce := pos + child.NodeSize()
		pos = ce
		if ce <= from || cs >= to || child.IsLeaf() || child.IsInline() {
			continue
		}
		updated := mapTextblocks(child, cs+1, from, to, fn)
		if updated == child {
			continue
		}
		if content == nil {
			content = make([]*Node, len(n.Content))
			copy(content, n.Content)
		}
		content[i] = updated
	}
	if content == nil {
		return n
	}
	return n.withContent(content)
}

// MarksAt returns the marks text typed at pos would carry. Links do not
// extend past their end.
func MarksAt(d *Node, pos int) []Mark {
	rp, err := d.Resolve(pos)
	if err != nil || !rp.Parent().AllowsMarks() {
		return nil
	}
	var marks []Mark
	before := rp.NodeBefore()
	after := rp.NodeAfter()
	switch {
	case before != nil && before.IsText():
		marks = before.Marks
	case after != nil && after.IsText():
		marks = after.Marks
	}
	if link, ok := FindMark(marks, MarkLink); ok && rp.TextOffset() == 0 {
		if !carries(before, link) || !carries(after, link) {
			marks = RemoveFromSet(marks, MarkLink)
		}
	}
	return cloneMarks(marks)
}

func carries(n *Node, m Mark) bool {
	if n == nil || !n.IsText() {
		return false
	}
	other, ok := FindMark(n.Marks, m.Type)
	return ok && other.Eq(m)
}

// RangeMarks returns the marks carried by every text node overlapping
// [from, to).
func RangeMarks(d *Node, from, to int) []Mark {
	var common []Mark
	first := true
	d.TextNodesBetween(from, to, func(text *Node, _ int) {
		if first {
			common = cloneMarks(text.Marks)
			first = false
			return
		}
		var kept []Mark
		for _, m := range common {
			for _, o := range text.Marks {
				if m.Eq(o) {
					kept = append(kept, m)
					break
				}
			}
		}
		common = kept
	})
	return common
}

// TextNodesBetween calls fn for each text node overlapping [from, to) with
// the position before the node.
func (n *Node) TextNodesBetween(from, to int, fn func(text *Node, pos int)) {
	n.Descendants(func(node *Node, pos int) bool {
		end := pos + node.NodeSize()
		if end <= from || pos >= to {
			return false
		}
		if node.IsText() {
			fn(node, pos)
			return false
		}
		return true
	})
}

// TextBetween returns the text in [from, to), with blockSep inserted
// between textblocks.
func (n *Node) TextBetween(from, to int, blockSep string) string {
	var out []rune
	separated := true
	n.Descendants(func(node *Node, pos int) bool {
		end := pos + node.NodeSize()
		if end <= from || pos >= to {
			return false
		}
		switch {
		case node.IsText():
			runes := []rune(node.Text)
			s := max(from-pos, 0)
			e := min(to-pos, len(runes))
			out = append(out, runes[s:e]...)
			separated = false
		case node.Type == TypeHardBreak:
			out = append(out, '\n')
		case node.IsTextblock():
			if !separated && blockSep != "" {
				out = append(out, []rune(blockSep)...)
			}
			separated = true
		}
		return true
	})
	return string(out)
}

// Descendants walks the tree depth-first calling fn with each descendant and
// the position directly before it. Returning false skips the children.
func (n *Node) Descendants(fn func(node *Node, pos int) bool) {
	var walk func(parent *Node, start int)
	walk = func(parent *Node, start int) {
		pos := start
		for _, child := range parent.Content {
			if fn(child, pos) && !child.IsLeaf() && !child.IsText() {
				walk(child, pos+1)
			}
			pos += child.NodeSize()
		}
	}
	walk(n, 0)
}
