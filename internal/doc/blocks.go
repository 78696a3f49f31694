package doc

import "fmt"

// ReplaceWith replaces the children between from and to with nodes. Both
// positions must sit between children of the same parent. The result is
// normalized so the tree stays structurally valid.
func ReplaceWith(d *Node, from, to int, nodes ...*Node) (*Node, error) {
	if from > to {
		from, to = to, from
	}
	rf, err := d.Resolve(from)
	if err != nil {
		return nil, err
	}
	rt, err := d.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := rf.Depth()
	if rt.Depth() != depth || rf.Start(depth) != rt.Start(depth) || rf.TextOffset() != 0 || rt.TextOffset() != 0 {
		return nil, fmt.Errorf("%w: [%d,%d] is not a sibling range", ErrPosition, from, to)
	}
	parent := rf.Parent()
	for _, node := range nodes {
		if !CanContain(parent.Type, node) {
			return nil, fmt.Errorf("%w: %s cannot hold %s", ErrSchema, parent.Type, node.Type)
		}
	}
	i, j := rf.Index(depth), rt.Index(depth)
	content := make([]*Node, 0, len(parent.Content)-(j-i)+len(nodes))
	content = append(content, parent.Content[:i]...)
	content = append(content, nodes...)
	content = append(content, parent.Content[j:]...)
	return Normalize(rf.replaceAt(depth, parent.withContent(content))), nil
}

// DeleteRange removes everything between from and to. When both ends lie in
// textblocks, the remainder of the last textblock is joined onto the first.
func DeleteRange(d *Node, from, to int) (*Node, error) {
	if from > to {
		from, to = to, from
	}
	if from == to {
		return d, nil
	}
	rf, err := d.Resolve(from)
	if err != nil {
		return nil, err
	}
	rt, err := d.Resolve(to)
	if err != nil {
		return nil, err
	}
	sameBlock := rf.Depth() == rt.Depth() && rf.Start(rf.Depth()) == rt.Start(rt.Depth())
	if sameBlock && rf.Parent().IsTextblock() {
		return DeleteText(d, from, to)
	}
	out := deleteBetween(d, 0, from, to)
	if rf.Parent().IsTextblock() && rt.Parent().IsTextblock() {
		out = joinForward(out, from)
	}
	return Normalize(out), nil
}

func deleteBetween(n *Node, start, from, to int) *Node {
	content := make([]*Node, 0, len(n.Content))
	pos := start
	for _, child := range n.Content {
		cs := pos
		ce := pos + child.NodeSize()
		pos = ce
		switch {
		case ce <= from || cs >= to:
			content = append(content, child)
		case from <= cs && ce <= to:
		case child.IsText():
			runes := []rune(child.Text)
			a := max(from-cs, 0)
			b := min(to-cs, len(runes))
			if text := string(runes[:a]) + string(runes[b:]); text != "" {
				content = append(content, child.withText(text))
			}
		default:
			content = append(content, deleteBetween(child, cs+1, from, to))
		}
	}
	if n.IsTextblock() {
		content = normalizeInline(content)
	}
	return n.withContent(content)
}

// joinForward merges the textblock following the one containing pos into
// it. pos must sit at the end of its textblock.
func joinForward(d *Node, pos int) *Node {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return d
	}
	end := rp.End(rp.Depth())
	var next *Node
	nextBefore := -1
	d.Descendants(func(node *Node, p int) bool {
		if next != nil {
			return false
		}
		if node.IsTextblock() && p > end {
			next = node
			nextBefore = p
			return false
		}
		return p+node.NodeSize() > end
	})
	if next == nil {
		return d
	}
	rn, err := d.Resolve(nextBefore + 1)
	if err != nil {
		return d
	}
	removed := rn.spliceAt(rn.Depth())
	rp, err = textblockAt(removed, pos)
	if err != nil {
		return d
	}
	tb := rp.Parent()
	tail := next.Content
	if !tb.AllowsMarks() {
		tail = plainInline(next)
	}
	return rp.replaceAt(rp.Depth(), tb.withContent(joinInline(tb.Content, tail)))
}

// plainInline flattens a textblock to unmarked text.
func plainInline(tb *Node) []*Node {
	text := PlainText(tb)
	if text == "" {
		return nil
	}
	return []*Node{Text(text)}
}

// SetBlockType converts the textblock at pos to typ. The conversion keeps
// the node size so positions inside stay valid.
func SetBlockType(d *Node, pos int, typ string, attrs map[string]any) (*Node, error) {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return nil, err
	}
	tb := rp.Parent()
	next := &Node{Type: typ, Attrs: cloneAttrs(attrs)}
	if !next.IsTextblock() {
		return nil, fmt.Errorf("%w: %s is not a textblock type", ErrSchema, typ)
	}
	switch {
	case !next.AllowsMarks():
		next.Content = plainInline(tb)
	case !tb.AllowsMarks():
		next.Content = plainInline(tb)
	default:
		next.Content = tb.Content
	}
	return rp.replaceAt(rp.Depth(), next), nil
}

// Wrap wraps the textblock at pos into wrapper, with an intermediate item
// node when item is not empty (lists). It returns the number of opening
// tokens added in front of the textblock. The first textblock of a list
// item cannot be wrapped since items must start with a textblock.
func Wrap(d *Node, pos int, wrapper, item string) (*Node, int, error) {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return nil, 0, err
	}
	depth := rp.Depth()
	if parent := rp.Node(depth - 1); parent.IsListItem() && rp.Index(depth-1) == 0 {
		return nil, 0, fmt.Errorf("%w: %s must start with a textblock", ErrSchema, parent.Type)
	}
	inner := rp.Parent()
	added := 1
	if item != "" {
		itemNode := &Node{Type: item, Content: []*Node{inner}}
		if item == TypeTaskItem {
			itemNode.Attrs = map[string]any{"checked": false}
		}
		inner = itemNode
		added = 2
	}
	outer := &Node{Type: wrapper, Content: []*Node{inner}}
	if !CanContain(rp.Node(depth-1).Type, outer) {
		return nil, 0, fmt.Errorf("%w: %s cannot hold %s", ErrSchema, rp.Node(depth-1).Type, wrapper)
	}
	return rp.replaceAt(depth, outer), added, nil
}

// SplitBlock splits the textblock at pos in two and returns the new
// document and the cursor position at the start of the second half. Inside
// a code block a newline is inserted instead; in a list item the item is
// split; an empty last list item leaves the list.
func SplitBlock(d *Node, pos int) (*Node, int, error) {
	rp, err := textblockAt(d, pos)
	if err != nil {
		return nil, 0, err
	}
	tb := rp.Parent()
	depth := rp.Depth()
	if tb.Type == TypeCodeBlock {
		out, err := InsertText(d, pos, "\n", nil)
		return out, pos + 1, err
	}
	off := rp.ParentOffset()
	size := tb.ContentSize()
	left := tb.withContent(normalizeInline(cutInline(tb.Content, 0, off)))
	right := &Node{Type: tb.Type, Attrs: cloneAttrs(tb.Attrs), Content: normalizeInline(cutInline(tb.Content, off, size))}
	if tb.Type == TypeHeading && off == size {
		right = Paragraph()
	}

	if depth >= 3 && rp.Node(depth-1).IsListItem() && rp.Index(depth-1) == 0 {
		item := rp.Node(depth - 1)
		list := rp.Node(depth - 2)
		if size == 0 && len(item.Content) == 1 && rp.Index(depth-2) == len(list.Content)-1 {
			return leaveList(rp, depth-2)
		}
		leftItem := item.withContent([]*Node{left})
		rightItem := &Node{Type: item.Type, Attrs: cloneAttrs(item.Attrs), Content: append([]*Node{right}, item.Content[1:]...)}
		if item.Type == TypeTaskItem {
			rightItem.Attrs = map[string]any{"checked": false}
		}
		out := rp.spliceAt(depth-1, leftItem, rightItem)
		return out, rp.Before(depth-1) + leftItem.NodeSize() + 2, nil
	}

	out := rp.spliceAt(depth, left, right)
	return out, rp.Before(depth) + left.NodeSize() + 1, nil
}

// leaveList drops the empty last item of the list at listDepth and puts an
// empty paragraph after the list.
func leaveList(rp *ResolvedPos, listDepth int) (*Node, int, error) {
	list := rp.Node(listDepth)
	items := list.Content[:len(list.Content)-1]
	var replacement []*Node
	cursor := rp.Before(listDepth) + 1
	if len(items) > 0 {
		rest := list.withContent(items)
		replacement = append(replacement, rest)
		cursor += rest.NodeSize()
	}
	replacement = append(replacement, Paragraph())
	return rp.spliceAt(listDepth, replacement...), cursor, nil
}

// JoinBackward handles Backspace at the start of a textblock: it merges with
// the previous textblock, removes a previous leaf block, merges a list item
// into the previous item, lifts the first list item out of its list, or
// resets a heading/code block to a paragraph. ok is false when nothing
// applies.
func JoinBackward(d *Node, pos int) (out *Node, cursor int, ok bool) {
	rp, err := textblockAt(d, pos)
	if err != nil || rp.ParentOffset() != 0 {
		return d, pos, false
	}
	depth := rp.Depth()
	tb := rp.Parent()
	parent := rp.Node(depth - 1)
	idx := rp.Index(depth - 1)

	if idx > 0 {
		prev := parent.Content[idx-1]
		switch {
		case prev.IsTextblock():
			tail := tb.Content
			if !prev.AllowsMarks() {
				tail = plainInline(tb)
			}
			merged := prev.withContent(joinInline(prev.Content, tail))
			content := make([]*Node, 0, len(parent.Content)-1)
			content = append(content, parent.Content[:idx-1]...)
			content = append(content, merged)
			content = append(content, parent.Content[idx+1:]...)
			return rp.replaceAt(depth-1, parent.withContent(content)), rp.Before(depth) - 1, true
		case prev.IsLeaf():
			content := make([]*Node, 0, len(parent.Content)-1)
			content = append(content, parent.Content[:idx-1]...)
			content = append(content, parent.Content[idx:]...)
			return rp.replaceAt(depth-1, parent.withContent(content)), pos - 1, true
		}
		return d, pos, false
	}

	if parent.IsListItem() && depth >= 3 {
		list := rp.Node(depth - 2)
		itemIdx := rp.Index(depth - 2)
		if itemIdx > 0 {
			prevItem := list.Content[itemIdx-1]
			last := prevItem.Content[len(prevItem.Content)-1]
			if last.IsTextblock() {
				merged := last.withContent(joinInline(last.Content, tb.Content))
				children := make([]*Node, 0, len(prevItem.Content)+len(parent.Content)-1)
				children = append(children, prevItem.Content[:len(prevItem.Content)-1]...)
				children = append(children, merged)
				children = append(children, parent.Content[1:]...)
				items := make([]*Node, 0, len(list.Content)-1)
				items = append(items, list.Content[:itemIdx-1]...)
				items = append(items, prevItem.withContent(children))
				items = append(items, list.Content[itemIdx+1:]...)
				return rp.replaceAt(depth-2, list.withContent(items)), rp.Before(depth-1) - 2, true
			}
		}
		if itemIdx == 0 && len(parent.Content) == 1 {
			lifted := &Node{Type: TypeParagraph, Content: tb.Content}
			if !tb.AllowsMarks() {
				lifted.Content = plainInline(tb)
			}
			replacement := []*Node{lifted}
			if rest := list.Content[1:]; len(rest) > 0 {
				replacement = append(replacement, list.withContent(rest))
			}
			return rp.spliceAt(depth-2, replacement...), rp.Before(depth-2) + 1, true
		}
	}

	if tb.Type != TypeParagraph {
		out, err := SetBlockType(d, pos, TypeParagraph, nil)
		if err != nil {
			return d, pos, false
		}
		return out, pos, true
	}
	return d, pos, false
}

// SetNodeAttrs merges attrs into the node directly after pos.
func SetNodeAttrs(d *Node, pos int, attrs map[string]any) (*Node, error) {
	rp, err := d.Resolve(pos)
	if err != nil {
		return nil, err
	}
	target := rp.NodeAfter()
	if target == nil || target.IsText() || rp.TextOffset() != 0 {
		return nil, fmt.Errorf("%w: no node after %d", ErrPosition, pos)
	}
	updated := target.shallow()
	updated.Attrs = cloneAttrs(target.Attrs)
	if updated.Attrs == nil {
		updated.Attrs = make(map[string]any, len(attrs))
	}
	for k, v := range attrs {
		updated.Attrs[k] = v
	}
	parent := rp.Parent()
	content := make([]*Node, len(parent.Content))
	copy(content, parent.Content)
	content[rp.Index(rp.Depth())] = updated
	return rp.replaceAt(rp.Depth(), parent.withContent(content)), nil
}

// NearestTextPos returns the textblock position closest to pos, searching
// forward first. It returns 0 when the document holds no textblock.
func NearestTextPos(d *Node, pos int) int {
	pos = min(max(pos, 0), d.ContentSize())
	if rp, err := d.Resolve(pos); err == nil && rp.Parent().IsTextblock() {
		return pos
	}
	forward, backward := -1, -1
	d.Descendants(func(node *Node, p int) bool {
		if forward >= 0 {
			return false
		}
		if node.IsTextblock() {
			start := p + 1
			end := start + node.ContentSize()
			if start >= pos {
				forward = start
			} else {
				backward = end
			}
			return false
		}
		return true
	})
	switch {
	case forward >= 0:
		return forward
	case backward >= 0:
		return backward
	}
	return 0
}

// TextblockCount counts textblocks in the tree.
func TextblockCount(d *Node) int {
	count := 0
	d.Descendants(func(node *Node, _ int) bool {
		if node.IsTextblock() {
			count++
			return false
		}
		return true
	})
	return count
}
