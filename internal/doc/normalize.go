package doc

import "strings"

// Normalize repairs a tree so it satisfies the schema: unknown or misplaced
// children are dropped or wrapped, empty lists, rows, tables and quotes are
// removed, empty documents and cells get an empty paragraph, list items
// start with a textblock, inline runs are merged and code blocks hold plain
// text only. The input is not modified.
func Normalize(n *Node) *Node {
	out := normalize(n)
	if out == nil || out.Type != TypeDoc {
		return NewDoc(Paragraph())
	}
	return out
}

func normalize(n *Node) *Node {
	if n == nil || !KnownType(n.Type) {
		return nil
	}
	if n.IsText() {
		if n.Text == "" {
			return nil
		}
		return n
	}
	if n.IsLeaf() {
		return n
	}

	if n.IsTextblock() {
		return normalizeTextblock(n)
	}

	content := make([]*Node, 0, len(n.Content))
	var pendingInline []*Node
	flush := func() {
		if len(pendingInline) == 0 {
			return
		}
		if p := normalizeTextblock(Paragraph(pendingInline...)); CanContain(n.Type, p) {
			content = append(content, p)
		}
		pendingInline = nil
	}
	for _, child := range n.Content {
		fixed := normalize(child)
		if fixed == nil {
			continue
		}
		if CanContain(n.Type, fixed) {
			flush()
			content = append(content, fixed)
			continue
		}
		if fixed.IsInline() {
			pendingInline = append(pendingInline, fixed)
			continue
		}
		flush()
		if wrapped := wrapFor(n.Type, fixed); wrapped != nil {
			content = append(content, wrapped)
		}
	}
	flush()

	if n.IsListItem() && len(content) > 0 && !content[0].IsTextblock() {
		content = append([]*Node{Paragraph()}, content...)
	}
	if len(content) == 0 && specs[n.Type].required {
		switch n.Type {
		case TypeDoc, TypeTableCell, TypeTableHeader:
			content = []*Node{Paragraph()}
		default:
			return nil
		}
	}
	return n.withContent(content)
}

func normalizeTextblock(n *Node) *Node {
	if !n.AllowsMarks() {
		var b strings.Builder
		for _, child := range n.Content {
			switch {
			case child.IsText():
				b.WriteString(child.Text)
			case child.Type == TypeHardBreak:
				b.WriteByte('\n')
			}
		}
		out := n.withContent(nil)
		if b.Len() > 0 {
			out.Content = []*Node{Text(b.String())}
		}
		return out
	}
	content := make([]*Node, 0, len(n.Content))
	for _, child := range n.Content {
		if !child.IsInline() || (child.IsText() && child.Text == "") {
			continue
		}
		content = append(content, child)
	}
	return n.withContent(normalizeInline(content))
}

// wrapFor fits a block into a parent that only accepts structural children.
func wrapFor(parent string, child *Node) *Node {
	switch parent {
	case TypeBulletList, TypeOrderedList:
		if child.Type == TypeTaskItem {
			return &Node{Type: TypeListItem, Content: child.Content}
		}
		if child.IsBlock() && !isStructural(child.Type) {
			return &Node{Type: TypeListItem, Content: []*Node{child}}
		}
	case TypeTaskList:
		if child.Type == TypeListItem {
			return &Node{Type: TypeTaskItem, Attrs: map[string]any{"checked": false}, Content: child.Content}
		}
		if child.IsBlock() && !isStructural(child.Type) {
			return &Node{Type: TypeTaskItem, Attrs: map[string]any{"checked": false}, Content: []*Node{child}}
		}
	case TypeTableRow:
		if child.IsBlock() && !isStructural(child.Type) {
			return &Node{Type: TypeTableCell, Content: []*Node{child}}
		}
	}
	return nil
}
