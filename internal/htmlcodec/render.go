// Package htmlcodec converts between document trees and sanitized HTML.
package htmlcodec

import (
	"fmt"
	"html"
	"strings"

	"netlabs/api/internal/doc"
)

// Render converts a document tree to HTML. The output is not sanitized;
// use Serialize for HTML leaving the process.
func Render(n *doc.Node) string {
	if n == nil {
		return ""
	}
	return renderNode(n)
}

// Serialize renders n and passes the result through the sanitizer policy.
func Serialize(n *doc.Node) string {
	return Sanitize(Render(n))
}

// renderNode recursively renders a node to HTML
func renderNode(node *doc.Node) string {
	switch node.Type {
	case doc.TypeDoc:
		return renderContent(node.Content)
	case doc.TypeParagraph:
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node.Content))
	case doc.TypeHeading:
		level := min(max(node.IntAttr("level", 1), 1), 6)
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node.Content), level)
	case doc.TypeBulletList:
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node.Content))
	case doc.TypeOrderedList:
		if start := node.IntAttr("start", 1); start != 1 {
			return fmt.Sprintf("<ol start=\"%d\">\n%s</ol>\n", start, renderContent(node.Content))
		}
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node.Content))
	case doc.TypeListItem:
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node.Content))
	case doc.TypeTaskList:
		return fmt.Sprintf("<ul data-type=\"taskList\">\n%s</ul>\n", renderContent(node.Content))
	case doc.TypeTaskItem:
		return fmt.Sprintf("<li data-type=\"taskItem\" data-checked=\"%t\">%s</li>\n", node.BoolAttr("checked"), renderContent(node.Content))
	case doc.TypeBlockquote:
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node.Content))
	case doc.TypeCodeBlock:
		code := html.EscapeString(node.TextContent())
		if lang := node.StringAttr("language"); lang != "" {
			return fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>\n", html.EscapeString(lang), code)
		}
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", code)
	case doc.TypeText:
		return renderTextWithMarks(node.Text, node.Marks)
	case doc.TypeHardBreak:
		return "<br>"
	case doc.TypeImage:
		var attrs strings.Builder
		for _, name := range []string{"src", "alt", "title"} {
			if v := node.StringAttr(name); v != "" {
				fmt.Fprintf(&attrs, " %s=\"%s\"", name, html.EscapeString(v))
			}
		}
		return fmt.Sprintf("<img%s>\n", attrs.String())
	case doc.TypeTable:
		return fmt.Sprintf("<table>\n%s</table>\n", renderContent(node.Content))
	case doc.TypeTableRow:
		return fmt.Sprintf("<tr>\n%s</tr>\n", renderContent(node.Content))
	case doc.TypeTableCell:
		return fmt.Sprintf("<td>%s</td>\n", renderContent(node.Content))
	case doc.TypeTableHeader:
		return fmt.Sprintf("<th>%s</th>\n", renderContent(node.Content))
	case doc.TypeHorizontalRule:
		return "<hr>\n"
	default:
		return renderContent(node.Content)
	}
}

func renderContent(content []*doc.Node) string {
	var result strings.Builder
	for _, child := range content {
		result.WriteString(renderNode(child))
	}
	return result.String()
}

// renderTextWithMarks renders text with formatting marks, the first mark
// outermost.
func renderTextWithMarks(text string, marks []doc.Mark) string {
	if text == "" {
		return ""
	}
	htmlText := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case doc.MarkBold:
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case doc.MarkItalic:
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case doc.MarkCode:
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case doc.MarkLink:
			href, _ := marks[i].Attrs["href"].(string)
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		case doc.MarkStrike:
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case doc.MarkUnderline:
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		}
	}
	return htmlText
}
