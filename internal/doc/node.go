// Package doc implements the structured document tree edited by the engine.
//
// The tree uses the ProseMirror JSON shape (type, attrs, content, text,
// marks) so documents round-trip with browser editors, and ProseMirror
// position arithmetic: a text node counts one position per rune, a leaf node
// counts one, and every other node counts its content plus an opening and a
// closing token.
package doc

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"
)

var (
	// ErrPosition indicates a document position outside the document or not
	// valid for the requested operation.
	ErrPosition = errors.New("invalid document position")
	// ErrSchema indicates an operation that would produce a node where the
	// schema does not allow it.
	ErrSchema = errors.New("schema violation")
)

// Node is a document node.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is inline formatting attached to a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Eq reports whether two marks have the same type and attributes.
func (m Mark) Eq(other Mark) bool {
	return m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs)
}

// Range is a pair of document positions.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Empty reports whether the range covers no positions.
func (r Range) Empty() bool {
	return r.From == r.To
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n != nil && n.Type == TypeText
}

// NodeSize is the number of positions n occupies in its parent.
func (n *Node) NodeSize() int {
	if n == nil {
		return 0
	}
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	if n.IsLeaf() {
		return 1
	}
	return n.ContentSize() + 2
}

// ContentSize is the number of positions covered by n's children.
func (n *Node) ContentSize() int {
	size := 0
	for _, child := range n.Content {
		size += child.NodeSize()
	}
	return size
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	return len(n.Content)
}

// Attr returns the attribute value or nil.
func (n *Node) Attr(name string) any {
	if n == nil || n.Attrs == nil {
		return nil
	}
	return n.Attrs[name]
}

// IntAttr returns a numeric attribute as int. JSON decoding yields float64,
// constructors yield int; both are accepted.
func (n *Node) IntAttr(name string, fallback int) int {
	switch v := n.Attr(name).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// StringAttr returns a string attribute or "".
func (n *Node) StringAttr(name string) string {
	v, _ := n.Attr(name).(string)
	return v
}

// BoolAttr returns a boolean attribute or false.
func (n *Node) BoolAttr(name string) bool {
	v, _ := n.Attr(name).(bool)
	return v
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Type:  n.Type,
		Attrs: cloneAttrs(n.Attrs),
		Text:  n.Text,
		Marks: cloneMarks(n.Marks),
	}
	if len(n.Content) > 0 {
		out.Content = make([]*Node, len(n.Content))
		for i, child := range n.Content {
			out.Content[i] = child.Clone()
		}
	}
	return out
}

// shallow copies n without copying its children slice.
func (n *Node) shallow() *Node {
	cp := *n
	return &cp
}

// withContent returns a shallow copy of n holding content.
func (n *Node) withContent(content []*Node) *Node {
	cp := n.shallow()
	cp.Content = content
	return cp
}

// withText returns a copy of the text node n with different text.
func (n *Node) withText(text string) *Node {
	cp := n.shallow()
	cp.Text = text
	return cp
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	for _, child := range n.Content {
		b.WriteString(child.TextContent())
	}
	return b.String()
}

// PlainText renders n as plain text: textblocks are separated by newlines,
// hard breaks become newlines, formatting is discarded.
func PlainText(n *Node) string {
	var lines []string
	var walk func(*Node)
	walk = func(node *Node) {
		if node.IsTextblock() {
			var b strings.Builder
			for _, child := range node.Content {
				if child.Type == TypeHardBreak {
					b.WriteByte('\n')
					continue
				}
				b.WriteString(child.Text)
			}
			lines = append(lines, b.String())
			return
		}
		for _, child := range node.Content {
			walk(child)
		}
	}
	if n == nil {
		return ""
	}
	if n.IsText() {
		return n.Text
	}
	walk(n)
	return strings.Join(lines, "\n")
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Text != b.Text || len(a.Content) != len(b.Content) || len(a.Marks) != len(b.Marks) {
		return false
	}
	if !attrsEqual(a.Attrs, b.Attrs) {
		return false
	}
	for i := range a.Marks {
		if !a.Marks[i].Eq(b.Marks[i]) {
			return false
		}
	}
	for i := range a.Content {
		if !Equal(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalizeAttr(av), normalizeAttr(bv)) {
			return false
		}
	}
	return true
}

func normalizeAttr(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return v
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func cloneMarks(marks []Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
	}
	return out
}
