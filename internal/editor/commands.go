// Package editor implements the block editor core on top of the engine:
// the slash-command menu, floating block controls, URL dialogs, the bubble
// formatting menu and the editor facade that ties them to change and save
// callbacks.
package editor

import (
	"fmt"
	"unicode/utf8"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

// Kind identifies a command variant.
type Kind int

const (
	KindText Kind = iota
	KindHeading1
	KindHeading2
	KindHeading3
	KindQuote
	KindChecklist
	KindBulletList
	KindNumberedList
	KindCodeBlock
	KindInlineCode
	KindDivider
	KindImage
	KindTable
	KindEmbedLink
	KindLink
)

// Command is an entry of the insertion registry.
type Command struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Keywords    []string `json:"keywords"`
}

// registry is ordered by expected frequency of use.
var registry = []Command{
	{Kind: KindText, Title: "Text", Description: "Plain paragraph text", Icon: "¶", Keywords: []string{"paragraph", "p", "body"}},
	{Kind: KindHeading1, Title: "Heading 1", Description: "Large section heading", Icon: "H1", Keywords: []string{"h1", "title", "heading"}},
	{Kind: KindHeading2, Title: "Heading 2", Description: "Medium section heading", Icon: "H2", Keywords: []string{"h2", "subtitle", "heading"}},
	{Kind: KindHeading3, Title: "Heading 3", Description: "Small section heading", Icon: "H3", Keywords: []string{"h3", "heading"}},
	{Kind: KindQuote, Title: "Quote", Description: "Capture a quotation", Icon: "❝", Keywords: []string{"blockquote", "citation"}},
	{Kind: KindChecklist, Title: "Checklist", Description: "Track tasks with checkboxes", Icon: "☑", Keywords: []string{"todo", "task", "checkbox"}},
	{Kind: KindBulletList, Title: "Bullet List", Description: "Simple unordered list", Icon: "•", Keywords: []string{"ul", "unordered", "bullets"}},
	{Kind: KindNumberedList, Title: "Numbered List", Description: "Ordered list with numbers", Icon: "1.", Keywords: []string{"ol", "ordered", "numbers"}},
	{Kind: KindCodeBlock, Title: "Code Block", Description: "Device config or script snippet", Icon: "</>", Keywords: []string{"code", "snippet", "config", "cli"}},
	{Kind: KindInlineCode, Title: "Inline Code", Description: "Monospace text inside a line", Icon: "`", Keywords: []string{"code", "monospace", "command"}},
	{Kind: KindDivider, Title: "Divider", Description: "Visually separate sections", Icon: "—", Keywords: []string{"hr", "rule", "separator", "line"}},
	{Kind: KindImage, Title: "Image", Description: "Embed an image from a URL", Icon: "🖼", Keywords: []string{"picture", "photo", "diagram", "topology"}},
	{Kind: KindTable, Title: "Table", Description: "Insert a 3×3 table", Icon: "▦", Keywords: []string{"grid", "rows", "columns"}},
	{Kind: KindEmbedLink, Title: "Embed Link", Description: "Insert a link as its own line", Icon: "🔗", Keywords: []string{"url", "bookmark", "embed"}},
	{Kind: KindLink, Title: "Link", Description: "Insert a hyperlink", Icon: "🔗", Keywords: []string{"url", "href", "anchor"}},
}

// Commands returns the registry in declaration order.
func Commands() []Command {
	out := make([]Command, len(registry))
	copy(out, registry)
	return out
}

// Context is what a command acts on.
type Context struct {
	Engine *engine.Engine
	// Range is deleted before the command inserts its content.
	Range doc.Range
	// URLs collects URLs for the image and link commands.
	URLs URLRequester
	// Report receives errors raised after Apply returned, from URL
	// callbacks.
	Report func(error)
}

func (ctx Context) report(err error) {
	if err != nil && ctx.Report != nil {
		ctx.Report(err)
	}
}

const codeSnippet = "hostname R1\n" +
	"interface GigabitEthernet0/0\n" +
	" ip address 192.168.1.1 255.255.255.0\n" +
	" no shutdown"

// Apply runs the command. The deletion of ctx.Range and the command's own
// change are committed in one transaction; URL commands commit the
// deletion first and insert once the URL arrives.
func (c Command) Apply(ctx Context) error {
	e := ctx.Engine
	tr := e.Begin()
	if !ctx.Range.Empty() {
		tr.Delete(ctx.Range.From, ctx.Range.To).SetSelection(engine.Cursor(ctx.Range.From))
	}
	pos := tr.Selection().Head

	switch c.Kind {
	case KindText:
		tr.SetBlockType(pos, doc.TypeParagraph, nil)
	case KindHeading1, KindHeading2, KindHeading3:
		tr.SetBlockType(pos, doc.TypeHeading, map[string]any{"level": int(c.Kind-KindHeading1) + 1})
	case KindQuote:
		tr.Wrap(pos, doc.TypeBlockquote, "")
	case KindChecklist:
		tr.Wrap(pos, doc.TypeTaskList, doc.TypeTaskItem)
	case KindBulletList:
		tr.Wrap(pos, doc.TypeBulletList, doc.TypeListItem)
	case KindNumberedList:
		tr.Wrap(pos, doc.TypeOrderedList, doc.TypeListItem)
	case KindCodeBlock:
		tr.SetBlockType(pos, doc.TypeCodeBlock, nil)
	case KindInlineCode:
		marks := e.State().StoredMarks
		if marks == nil {
			marks = doc.MarksAt(tr.Doc(), pos)
		}
		if doc.HasMark(marks, doc.MarkCode) {
			marks = doc.RemoveFromSet(marks, doc.MarkCode)
		} else {
			marks = doc.AddToSet(marks, doc.Mark{Type: doc.MarkCode})
		}
		if marks == nil {
			marks = []doc.Mark{}
		}
		tr.SetStoredMarks(marks)
	case KindDivider:
		insertBlocks(tr, pos, 2, doc.Block(doc.TypeHorizontalRule, nil), doc.Paragraph())
	case KindTable:
		insertBlocks(tr, pos, 4, doc.Table(3, 3, true), doc.Paragraph())
	case KindImage, KindEmbedLink, KindLink:
		if err := e.Dispatch(tr); err != nil {
			return fmt.Errorf("%s: %w", c.Title, err)
		}
		c.requestURL(ctx)
		return nil
	default:
		return fmt.Errorf("unknown command %d", c.Kind)
	}
	if err := e.Dispatch(tr); err != nil {
		return fmt.Errorf("%s: %w", c.Title, err)
	}
	return nil
}

func (c Command) requestURL(ctx Context) {
	e := ctx.Engine
	sel := e.State().Selection
	mark := e.Bookmark(sel.From(), sel.To())
	req := URLRequest{
		Kind:      DialogLink,
		Mode:      ModeLink,
		Cancelled: mark.Release,
	}
	switch c.Kind {
	case KindImage:
		req.Kind, req.Mode = DialogImage, ModeImage
	case KindEmbedLink:
		req.Mode = ModeEmbed
	}
	req.Done = func(url *string) {
		defer mark.Release()
		if url == nil {
			return
		}
		from, to := mark.Range()
		ctx.report(insertURL(e, c.Kind, from, to, *url))
	}
	ctx.URLs.RequestURL(req)
}

// insertURL inserts the collected URL for a URL command.
func insertURL(e *engine.Engine, kind Kind, from, to int, url string) error {
	tr := e.Begin()
	switch kind {
	case KindImage:
		insertBlocks(tr, from, 2, doc.Block(doc.TypeImage, map[string]any{"src": url}), doc.Paragraph())
	case KindEmbedLink:
		insertBlocks(tr, from, 1+utf8.RuneCountInString(url), doc.Paragraph(doc.Text(url, doc.Link(url))))
	case KindLink:
		if to > from {
			tr.AddMark(from, to, doc.Link(url)).SetSelection(engine.Selection{Anchor: from, Head: to})
			break
		}
		marks := doc.AddToSet(doc.MarksAt(tr.Doc(), from), doc.Link(url))
		tr.InsertText(from, url, marks).SetSelection(engine.Cursor(from + utf8.RuneCountInString(url)))
	}
	if err := e.Dispatch(tr); err != nil {
		return fmt.Errorf("insert url: %w", err)
	}
	return nil
}

// insertBlocks puts nodes after the textblock containing pos, or in its
// place when that textblock is empty (unless it heads a list item). The
// cursor lands cursor positions into the inserted content.
func insertBlocks(tr *engine.Transaction, pos, cursor int, nodes ...*doc.Node) *engine.Transaction {
	rp, err := tr.Doc().Resolve(pos)
	if err != nil {
		return tr.Fail(err)
	}
	d := rp.Depth()
	if d == 0 || !rp.Parent().IsTextblock() {
		return tr.Fail(fmt.Errorf("%w: %d is not inside a textblock", doc.ErrPosition, pos))
	}
	from, to := rp.After(d), rp.After(d)
	headsItem := rp.Node(d-1).IsListItem() && rp.Index(d-1) == 0
	if rp.Parent().ContentSize() == 0 && !headsItem {
		from = rp.Before(d)
	}
	return tr.Replace(from, to, nodes...).SetSelection(engine.Cursor(from + cursor))
}
