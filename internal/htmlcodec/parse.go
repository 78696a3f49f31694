package htmlcodec

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"netlabs/api/internal/doc"
)

// Parse converts HTML into a normalized document. The input is sanitized
// first; markup outside the schema is dropped and its text kept.
func Parse(src string) (*doc.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(Sanitize(src)), body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc.Normalize(doc.NewDoc(blocks(nodes)...)), nil
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isInline(n *html.Node) bool {
	if n.Type == html.TextNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Strong, atom.B, atom.Em, atom.I, atom.S, atom.Strike, atom.Del,
		atom.U, atom.Code, atom.A, atom.Br, atom.Span:
		return true
	}
	return false
}

// blocks converts sibling HTML nodes to block nodes, gathering runs of
// inline content into paragraphs.
func blocks(nodes []*html.Node) []*doc.Node {
	var out []*doc.Node
	var pending []*html.Node
	flush := func() {
		if inline := trimInline(inlineAll(pending, nil)); len(inline) > 0 {
			out = append(out, doc.Paragraph(inline...))
		}
		pending = nil
	}
	for _, n := range nodes {
		if isInline(n) {
			pending = append(pending, n)
			continue
		}
		flush()
		if n.Type == html.ElementNode {
			out = append(out, block(n)...)
		}
	}
	flush()
	return out
}

func block(n *html.Node) []*doc.Node {
	switch n.DataAtom {
	case atom.P:
		return []*doc.Node{doc.Paragraph(trimInline(inlineAll(children(n), nil))...)}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		return []*doc.Node{doc.Heading(level, trimInline(inlineAll(children(n), nil))...)}
	case atom.Blockquote:
		return []*doc.Node{doc.Block(doc.TypeBlockquote, nil, blocks(children(n))...)}
	case atom.Ul:
		if attr(n, "data-type") == "taskList" {
			return []*doc.Node{doc.Block(doc.TypeTaskList, nil, items(n, doc.TypeTaskItem)...)}
		}
		return []*doc.Node{doc.Block(doc.TypeBulletList, nil, items(n, doc.TypeListItem)...)}
	case atom.Ol:
		var attrs map[string]any
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start != 1 {
			attrs = map[string]any{"start": start}
		}
		return []*doc.Node{doc.Block(doc.TypeOrderedList, attrs, items(n, doc.TypeListItem)...)}
	case atom.Pre:
		return []*doc.Node{codeBlock(n)}
	case atom.Hr:
		return []*doc.Node{doc.Block(doc.TypeHorizontalRule, nil)}
	case atom.Img:
		attrs := map[string]any{}
		for _, name := range []string{"src", "alt", "title"} {
			if v := attr(n, name); v != "" {
				attrs[name] = v
			}
		}
		if attrs["src"] == nil {
			return nil
		}
		return []*doc.Node{doc.Block(doc.TypeImage, attrs)}
	case atom.Table:
		return []*doc.Node{doc.Block(doc.TypeTable, nil, rows(n)...)}
	}
	return blocks(children(n))
}

func items(list *html.Node, itemType string) []*doc.Node {
	var out []*doc.Node
	for _, c := range children(list) {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		var attrs map[string]any
		if itemType == doc.TypeTaskItem {
			attrs = map[string]any{"checked": attr(c, "data-checked") == "true"}
		}
		out = append(out, doc.Block(itemType, attrs, blocks(children(c))...))
	}
	return out
}

func rows(n *html.Node) []*doc.Node {
	var out []*doc.Node
	for _, c := range children(n) {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Thead, atom.Tbody, atom.Tfoot:
			out = append(out, rows(c)...)
		case atom.Tr:
			var cells []*doc.Node
			for _, cell := range children(c) {
				switch {
				case cell.Type != html.ElementNode:
				case cell.DataAtom == atom.Th:
					cells = append(cells, doc.Block(doc.TypeTableHeader, nil, blocks(children(cell))...))
				case cell.DataAtom == atom.Td:
					cells = append(cells, doc.Block(doc.TypeTableCell, nil, blocks(children(cell))...))
				}
			}
			out = append(out, doc.Block(doc.TypeTableRow, nil, cells...))
		}
	}
	return out
}

func codeBlock(pre *html.Node) *doc.Node {
	lang := ""
	for _, c := range children(pre) {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			for _, class := range strings.Fields(attr(c, "class")) {
				if l, ok := strings.CutPrefix(class, "language-"); ok {
					lang = l
				}
			}
		}
	}
	return doc.CodeBlock(lang, textOf(pre))
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Br {
		return "\n"
	}
	var b strings.Builder
	for _, c := range children(n) {
		b.WriteString(textOf(c))
	}
	return b.String()
}

func inlineAll(nodes []*html.Node, marks []doc.Mark) []*doc.Node {
	var out []*doc.Node
	for _, n := range nodes {
		out = append(out, inline(n, marks)...)
	}
	return out
}

func inline(n *html.Node, marks []doc.Mark) []*doc.Node {
	if n.Type == html.TextNode {
		text := strings.Join(strings.Fields(n.Data), " ")
		if text == "" && n.Data != "" {
			text = " "
		} else if text != "" {
			if isSpace(n.Data[0]) {
				text = " " + text
			}
			if isSpace(n.Data[len(n.Data)-1]) {
				text += " "
			}
		}
		if text == "" {
			return nil
		}
		return []*doc.Node{doc.Text(text, append([]doc.Mark(nil), marks...)...)}
	}
	if n.Type != html.ElementNode {
		return nil
	}
	var mark *doc.Mark
	switch n.DataAtom {
	case atom.Br:
		return []*doc.Node{{Type: doc.TypeHardBreak}}
	case atom.Strong, atom.B:
		mark = &doc.Mark{Type: doc.MarkBold}
	case atom.Em, atom.I:
		mark = &doc.Mark{Type: doc.MarkItalic}
	case atom.S, atom.Strike, atom.Del:
		mark = &doc.Mark{Type: doc.MarkStrike}
	case atom.U:
		mark = &doc.Mark{Type: doc.MarkUnderline}
	case atom.Code:
		mark = &doc.Mark{Type: doc.MarkCode}
	case atom.A:
		if href := attr(n, "href"); href != "" {
			m := doc.Link(href)
			mark = &m
		}
	}
	if mark != nil && !doc.HasMark(marks, mark.Type) {
		marks = append(append([]doc.Mark(nil), marks...), *mark)
	}
	return inlineAll(children(n), marks)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

// trimInline drops leading and trailing whitespace of a textblock and
// collapses spaces meeting across node boundaries.
func trimInline(nodes []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, 0, len(nodes))
	prevSpace := true
	for _, n := range nodes {
		if !n.IsText() {
			out = append(out, n)
			prevSpace = n.Type == doc.TypeHardBreak
			continue
		}
		text := n.Text
		if prevSpace {
			text = strings.TrimLeft(text, " ")
		}
		if text == "" {
			continue
		}
		prevSpace = strings.HasSuffix(text, " ")
		out = append(out, &doc.Node{Type: doc.TypeText, Text: text, Marks: n.Marks})
	}
	for len(out) > 0 {
		last := out[len(out)-1]
		if !last.IsText() {
			break
		}
		text := strings.TrimRight(last.Text, " ")
		if text != "" {
			out[len(out)-1] = &doc.Node{Type: doc.TypeText, Text: text, Marks: last.Marks}
			break
		}
		out = out[:len(out)-1]
	}
	return out
}
