package doc

import "fmt"

type pathEntry struct {
	node  *Node
	index int
	start int
}

// ResolvedPos describes a position in context: the chain of ancestors
// containing it and the offsets into each of them.
type ResolvedPos struct {
	Pos        int
	path       []pathEntry
	textOffset int
}

// Resolve resolves pos against the document rooted at n.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > n.ContentSize() {
		return nil, fmt.Errorf("%w: %d outside [0,%d]", ErrPosition, pos, n.ContentSize())
	}
	rp := &ResolvedPos{Pos: pos}
	node := n
	start := 0
	for {
		index, offset := node.findIndex(pos - start)
		rp.path = append(rp.path, pathEntry{node: node, index: index, start: start})
		rem := pos - start - offset
		if rem == 0 || index >= len(node.Content) {
			break
		}
		child := node.Content[index]
		if child.IsText() {
			rp.textOffset = rem
			break
		}
		if child.IsLeaf() {
			break
		}
		node = child
		start = start + offset + 1
	}
	return rp, nil
}

// findIndex returns the index of the child containing offset and the
// offset at which that child starts.
func (n *Node) findIndex(offset int) (int, int) {
	cur := 0
	for i, child := range n.Content {
		end := cur + child.NodeSize()
		if end > offset {
			return i, cur
		}
		cur = end
	}
	return len(n.Content), cur
}

// Depth is the number of ancestors above the innermost parent.
func (r *ResolvedPos) Depth() int {
	return len(r.path) - 1
}

// Node returns the ancestor at depth d (0 is the document).
func (r *ResolvedPos) Node(d int) *Node {
	return r.path[d].node
}

// Parent is the innermost ancestor.
func (r *ResolvedPos) Parent() *Node {
	return r.path[len(r.path)-1].node
}

// Doc returns the root node.
func (r *ResolvedPos) Doc() *Node {
	return r.path[0].node
}

// Index returns the child index within the ancestor at depth d.
func (r *ResolvedPos) Index(d int) int {
	return r.path[d].index
}

// Start returns the position at which the content of the ancestor at depth
// d starts.
func (r *ResolvedPos) Start(d int) int {
	return r.path[d].start
}

// End returns the position at the end of the content of the ancestor at
// depth d.
func (r *ResolvedPos) End(d int) int {
	return r.Start(d) + r.Node(d).ContentSize()
}

// Before returns the position directly before the ancestor at depth d.
func (r *ResolvedPos) Before(d int) int {
	if d == 0 {
		return 0
	}
	return r.Start(d) - 1
}

// After returns the position directly after the ancestor at depth d.
func (r *ResolvedPos) After(d int) int {
	if d == 0 {
		return r.End(0)
	}
	return r.Before(d) + r.Node(d).NodeSize()
}

// ParentOffset is the offset of the position into its parent's content.
func (r *ResolvedPos) ParentOffset() int {
	return r.Pos - r.Start(r.Depth())
}

// TextOffset is the offset into the text node the position points into,
// or 0 when it points between nodes.
func (r *ResolvedPos) TextOffset() int {
	return r.textOffset
}

// NodeBefore returns the child directly before the position inside its
// parent, or nil. A text node split by the position is returned whole.
func (r *ResolvedPos) NodeBefore() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth())
	if r.textOffset > 0 {
		return parent.Content[index]
	}
	if index == 0 {
		return nil
	}
	return parent.Content[index-1]
}

// NodeAfter returns the child directly after the position, or nil.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth())
	if index >= len(parent.Content) {
		return nil
	}
	return parent.Content[index]
}

// replaceAt rebuilds the ancestor chain above depth d with node standing in
// for the ancestor at depth d, returning the new root. Ancestors are
// shallow-copied; untouched subtrees are shared with the old tree.
func (r *ResolvedPos) replaceAt(d int, node *Node) *Node {
	cur := node
	for depth := d - 1; depth >= 0; depth-- {
		ancestor := r.Node(depth)
		content := make([]*Node, len(ancestor.Content))
		copy(content, ancestor.Content)
		content[r.Index(depth)] = cur
		cur = ancestor.withContent(content)
	}
	return cur
}

// spliceAt replaces the ancestor at depth d (d >= 1) with zero or more
// nodes inside its own parent and returns the new root.
func (r *ResolvedPos) spliceAt(d int, nodes ...*Node) *Node {
	parent := r.Node(d - 1)
	index := r.Index(d - 1)
	content := make([]*Node, 0, len(parent.Content)-1+len(nodes))
	content = append(content, parent.Content[:index]...)
	content = append(content, nodes...)
	content = append(content, parent.Content[index+1:]...)
	return r.replaceAt(d-1, parent.withContent(content))
}
