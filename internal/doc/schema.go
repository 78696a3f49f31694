package doc

// Node types.
const (
	TypeDoc            = "doc"
	TypeParagraph      = "paragraph"
	TypeHeading        = "heading"
	TypeBlockquote     = "blockquote"
	TypeBulletList     = "bulletList"
	TypeOrderedList    = "orderedList"
	TypeListItem       = "listItem"
	TypeTaskList       = "taskList"
	TypeTaskItem       = "taskItem"
	TypeCodeBlock      = "codeBlock"
	TypeHorizontalRule = "horizontalRule"
	TypeImage          = "image"
	TypeTable          = "table"
	TypeTableRow       = "tableRow"
	TypeTableHeader    = "tableHeader"
	TypeTableCell      = "tableCell"
	TypeText           = "text"
	TypeHardBreak      = "hardBreak"
)

// Mark types.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkStrike    = "strike"
	MarkUnderline = "underline"
	MarkCode      = "code"
	MarkLink      = "link"
)

type contentKind int

const (
	contentNone contentKind = iota
	contentBlocks
	contentInline
	contentText
	contentListItems
	contentTaskItems
	contentRows
	contentCells
)

type nodeSpec struct {
	content contentKind
	inline  bool
	// required containers must hold at least one child.
	required bool
}

var specs = map[string]nodeSpec{
	TypeDoc:            {content: contentBlocks, required: true},
	TypeParagraph:      {content: contentInline},
	TypeHeading:        {content: contentInline},
	TypeBlockquote:     {content: contentBlocks, required: true},
	TypeBulletList:     {content: contentListItems, required: true},
	TypeOrderedList:    {content: contentListItems, required: true},
	TypeListItem:       {content: contentBlocks, required: true},
	TypeTaskList:       {content: contentTaskItems, required: true},
	TypeTaskItem:       {content: contentBlocks, required: true},
	TypeCodeBlock:      {content: contentText},
	TypeHorizontalRule: {},
	TypeImage:          {},
	TypeTable:          {content: contentRows, required: true},
	TypeTableRow:       {content: contentCells, required: true},
	TypeTableHeader:    {content: contentBlocks, required: true},
	TypeTableCell:      {content: contentBlocks, required: true},
	TypeText:           {inline: true},
	TypeHardBreak:      {inline: true},
}

// KnownType reports whether t is part of the schema.
func KnownType(t string) bool {
	_, ok := specs[t]
	return ok
}

// IsTextblock reports whether n holds inline content directly.
func (n *Node) IsTextblock() bool {
	if n == nil {
		return false
	}
	c := specs[n.Type].content
	return c == contentInline || c == contentText
}

// IsLeaf reports whether n can have no children. Text nodes are leaves.
func (n *Node) IsLeaf() bool {
	if n == nil {
		return false
	}
	spec, ok := specs[n.Type]
	return ok && spec.content == contentNone
}

// IsInline reports whether n belongs inside a textblock.
func (n *Node) IsInline() bool {
	return n != nil && specs[n.Type].inline
}

// IsBlock reports whether n is a block-level node (anything but the root
// and inline nodes).
func (n *Node) IsBlock() bool {
	return n != nil && n.Type != TypeDoc && !n.IsInline()
}

// IsListItem reports whether n is a bullet/ordered or task list item.
func (n *Node) IsListItem() bool {
	return n != nil && (n.Type == TypeListItem || n.Type == TypeTaskItem)
}

// AllowsMarks reports whether inline content of n may carry marks.
func (n *Node) AllowsMarks() bool {
	return n != nil && specs[n.Type].content == contentInline
}

// CanContain reports whether a node of type parent may hold child.
func CanContain(parent string, child *Node) bool {
	spec, ok := specs[parent]
	if !ok || child == nil {
		return false
	}
	switch spec.content {
	case contentBlocks:
		return child.IsBlock() && !isStructural(child.Type)
	case contentInline:
		return child.IsInline()
	case contentText:
		return child.IsText()
	case contentListItems:
		return child.Type == TypeListItem
	case contentTaskItems:
		return child.Type == TypeTaskItem
	case contentRows:
		return child.Type == TypeTableRow
	case contentCells:
		return child.Type == TypeTableCell || child.Type == TypeTableHeader
	}
	return false
}

// isStructural marks block types that only live inside a specific parent.
func isStructural(t string) bool {
	switch t {
	case TypeListItem, TypeTaskItem, TypeTableRow, TypeTableCell, TypeTableHeader:
		return true
	}
	return false
}

// NewDoc builds a document from blocks.
func NewDoc(blocks ...*Node) *Node {
	return &Node{Type: TypeDoc, Content: blocks}
}

// Paragraph builds a paragraph.
func Paragraph(inline ...*Node) *Node {
	return &Node{Type: TypeParagraph, Content: inline}
}

// Heading builds a heading of the given level.
func Heading(level int, inline ...*Node) *Node {
	return &Node{Type: TypeHeading, Attrs: map[string]any{"level": level}, Content: inline}
}

// Text builds a text node.
func Text(text string, marks ...Mark) *Node {
	return &Node{Type: TypeText, Text: text, Marks: marks}
}

// Block builds an arbitrary node.
func Block(typ string, attrs map[string]any, content ...*Node) *Node {
	return &Node{Type: typ, Attrs: attrs, Content: content}
}

// CodeBlock builds a code block holding text.
func CodeBlock(language, text string) *Node {
	n := &Node{Type: TypeCodeBlock}
	if language != "" {
		n.Attrs = map[string]any{"language": language}
	}
	if text != "" {
		n.Content = []*Node{Text(text)}
	}
	return n
}

// Link builds a link mark.
func Link(href string) Mark {
	return Mark{Type: MarkLink, Attrs: map[string]any{"href": href}}
}

// Table builds a rows×cols table. The first row holds header cells when
// withHeader is set. Every cell holds one empty paragraph.
func Table(rows, cols int, withHeader bool) *Node {
	table := &Node{Type: TypeTable}
	for r := 0; r < rows; r++ {
		row := &Node{Type: TypeTableRow}
		cellType := TypeTableCell
		if r == 0 && withHeader {
			cellType = TypeTableHeader
		}
		for c := 0; c < cols; c++ {
			row.Content = append(row.Content, &Node{Type: cellType, Content: []*Node{Paragraph()}})
		}
		table.Content = append(table.Content, row)
	}
	return table
}

// HasMark reports whether marks contains a mark of type t.
func HasMark(marks []Mark, t string) bool {
	_, ok := FindMark(marks, t)
	return ok
}

// FindMark returns the first mark of type t.
func FindMark(marks []Mark, t string) (Mark, bool) {
	for _, m := range marks {
		if m.Type == t {
			return m, true
		}
	}
	return Mark{}, false
}

// AddToSet returns marks with m added, replacing a mark of the same type.
func AddToSet(marks []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(marks)+1)
	for _, existing := range marks {
		if existing.Type != m.Type {
			out = append(out, existing)
		}
	}
	return append(out, Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)})
}

// RemoveFromSet returns marks without marks of type t.
func RemoveFromSet(marks []Mark, t string) []Mark {
	var out []Mark
	for _, existing := range marks {
		if existing.Type != t {
			out = append(out, existing)
		}
	}
	return out
}

// SameMarkSet reports whether a and b hold equal marks, order ignored.
func SameMarkSet(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		found := false
		for _, o := range b {
			if m.Eq(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
