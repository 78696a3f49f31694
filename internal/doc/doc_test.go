package doc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	d := NewDoc(Paragraph(Text("ab")), Paragraph(Text("c")))

	tests := []struct {
		pos          int
		depth        int
		parent       string
		parentOffset int
	}{
		{pos: 0, depth: 0, parent: TypeDoc, parentOffset: 0},
		{pos: 1, depth: 1, parent: TypeParagraph, parentOffset: 0},
		{pos: 2, depth: 1, parent: TypeParagraph, parentOffset: 1},
		{pos: 3, depth: 1, parent: TypeParagraph, parentOffset: 2},
		{pos: 4, depth: 0, parent: TypeDoc, parentOffset: 4},
		{pos: 5, depth: 1, parent: TypeParagraph, parentOffset: 0},
		{pos: 7, depth: 0, parent: TypeDoc, parentOffset: 7},
	}
	for _, tt := range tests {
		rp, err := d.Resolve(tt.pos)
		if err != nil {
			t.Fatalf("Resolve(%d) error = %v", tt.pos, err)
		}
		if rp.Depth() != tt.depth || rp.Parent().Type != tt.parent || rp.ParentOffset() != tt.parentOffset {
			t.Errorf("Resolve(%d) = depth %d parent %s offset %d, want %d %s %d",
				tt.pos, rp.Depth(), rp.Parent().Type, rp.ParentOffset(), tt.depth, tt.parent, tt.parentOffset)
		}
	}

	rp, _ := d.Resolve(5)
	if rp.Before(1) != 4 || rp.After(1) != 7 || rp.Start(1) != 5 || rp.End(1) != 6 {
		t.Errorf("bounds = before %d after %d start %d end %d", rp.Before(1), rp.After(1), rp.Start(1), rp.End(1))
	}

	if _, err := d.Resolve(8); !errors.Is(err, ErrPosition) {
		t.Errorf("Resolve(8) error = %v, want ErrPosition", err)
	}
}

func TestNodeSize(t *testing.T) {
	d := NewDoc(
		Paragraph(Text("héllo")),
		Block(TypeHorizontalRule, nil),
		Block(TypeBulletList, nil, Block(TypeListItem, nil, Paragraph(Text("x")))),
	)
	// paragraph 5+2, rule 1, list 1+1+(1+2)+1+1
	if got := d.ContentSize(); got != 15 {
		t.Fatalf("ContentSize() = %d, want 15", got)
	}
}

func TestInsertAndDeleteText(t *testing.T) {
	d := NewDoc(Paragraph(Text("held")))
	out, err := InsertText(d, 4, "l", nil)
	if err != nil {
		t.Fatalf("InsertText() error = %v", err)
	}
	want := NewDoc(Paragraph(Text("helld")))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("InsertText() mismatch (-want +got):\n%s", diff)
	}
	if d.Content[0].Content[0].Text != "held" {
		t.Fatal("InsertText() mutated its input")
	}

	out, err = DeleteText(out, 5, 6)
	if err != nil {
		t.Fatalf("DeleteText() error = %v", err)
	}
	if got := out.TextContent(); got != "hell" {
		t.Fatalf("DeleteText() text = %q, want hell", got)
	}

	if _, err := InsertText(NewDoc(Block(TypeHorizontalRule, nil)), 0, "x", nil); !errors.Is(err, ErrPosition) {
		t.Fatalf("InsertText outside textblock error = %v", err)
	}
}

func TestInsertTextMergesMarks(t *testing.T) {
	bold := Mark{Type: MarkBold}
	d := NewDoc(Paragraph(Text("ab", bold)))
	out, err := InsertText(d, 3, "c", []Mark{bold})
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Paragraph(Text("abc", bold)))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeBlockDropsMarks(t *testing.T) {
	d := NewDoc(CodeBlock("", "ab"))
	out, err := InsertText(d, 2, "x", []Mark{{Type: MarkBold}})
	if err != nil {
		t.Fatal(err)
	}
	if marks := out.Content[0].Content[0].Marks; len(marks) != 0 {
		t.Fatalf("code block text carries marks %v", marks)
	}
}

func TestSplitBlock(t *testing.T) {
	d := NewDoc(Paragraph(Text("ab")))
	out, cursor, err := SplitBlock(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Paragraph(Text("a")), Paragraph(Text("b")))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if cursor != 4 {
		t.Fatalf("cursor = %d, want 4", cursor)
	}
}

func TestSplitHeadingAtEndMakesParagraph(t *testing.T) {
	d := NewDoc(Heading(2, Text("Title")))
	out, _, err := SplitBlock(d, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Heading(2, Text("Title")), Paragraph())
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitListItem(t *testing.T) {
	item := func(text string) *Node {
		if text == "" {
			return Block(TypeListItem, nil, Paragraph())
		}
		return Block(TypeListItem, nil, Paragraph(Text(text)))
	}
	d := NewDoc(Block(TypeBulletList, nil, item("ab")))
	out, cursor, err := SplitBlock(d, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Block(TypeBulletList, nil, item("a"), item("b")))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if cursor != 8 {
		t.Fatalf("cursor = %d, want 8", cursor)
	}

	d = NewDoc(Block(TypeBulletList, nil, item("a"), item("")))
	out, cursor, err = SplitBlock(d, 8)
	if err != nil {
		t.Fatal(err)
	}
	want = NewDoc(Block(TypeBulletList, nil, item("a")), Paragraph())
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("leave list mismatch (-want +got):\n%s", diff)
	}
	if cursor != 8 {
		t.Fatalf("cursor = %d, want 8", cursor)
	}
}

func TestJoinBackward(t *testing.T) {
	d := NewDoc(Paragraph(Text("a")), Paragraph(Text("b")))
	out, cursor, ok := JoinBackward(d, 4)
	if !ok {
		t.Fatal("JoinBackward() ok = false")
	}
	if diff := cmp.Diff(NewDoc(Paragraph(Text("ab"))), out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if cursor != 2 {
		t.Fatalf("cursor = %d, want 2", cursor)
	}

	if _, _, ok := JoinBackward(NewDoc(Paragraph(Text("a"))), 1); ok {
		t.Fatal("JoinBackward() at document start should not apply")
	}

	out, _, ok = JoinBackward(NewDoc(Heading(1, Text("a"))), 1)
	if !ok || out.Content[0].Type != TypeParagraph {
		t.Fatalf("heading at start should reset to paragraph, got %+v", out.Content[0])
	}
}

func TestDeleteRangeAcrossBlocks(t *testing.T) {
	d := NewDoc(Paragraph(Text("ab")), Paragraph(Text("cd")))
	out, err := DeleteRange(d, 2, 6)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(NewDoc(Paragraph(Text("ad"))), out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceWithRemovingOnlyBlockLeavesValidDoc(t *testing.T) {
	d := NewDoc(Paragraph(Text("a")))
	out, err := ReplaceWith(d, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(NewDoc(Paragraph()), out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceWithRejectsSchemaViolation(t *testing.T) {
	d := NewDoc(Block(TypeBulletList, nil, Block(TypeListItem, nil, Paragraph())))
	if _, err := ReplaceWith(d, 1, 1, Paragraph()); !errors.Is(err, ErrSchema) {
		t.Fatalf("ReplaceWith() error = %v, want ErrSchema", err)
	}
}

func TestMarks(t *testing.T) {
	d := NewDoc(Paragraph(Text("hello world")))
	link := Link("https://example.com")
	out, err := AddMark(d, 7, 12, link)
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Paragraph(Text("hello "), Text("world", link)))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("AddMark mismatch (-want +got):\n%s", diff)
	}

	if marks := MarksAt(out, 12); HasMark(marks, MarkLink) {
		t.Error("link should not extend past its end")
	}
	if marks := MarksAt(out, 9); !HasMark(marks, MarkLink) {
		t.Error("link should apply inside the linked text")
	}
	if marks := RangeMarks(out, 7, 12); !HasMark(marks, MarkLink) {
		t.Errorf("RangeMarks() = %v", marks)
	}

	out, err = RemoveMark(out, 7, 12, MarkLink)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d, out); diff != "" {
		t.Fatalf("RemoveMark mismatch (-want +got):\n%s", diff)
	}
}

func TestSetBlockTypeAndWrap(t *testing.T) {
	d := NewDoc(Paragraph(Text("x")))
	out, err := SetBlockType(d, 1, TypeHeading, map[string]any{"level": 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(NewDoc(Heading(2, Text("x"))), out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	out, added, err := Wrap(d, 1, TypeTaskList, TypeTaskItem)
	if err != nil {
		t.Fatal(err)
	}
	want := NewDoc(Block(TypeTaskList, nil, Block(TypeTaskItem, map[string]any{"checked": false}, Paragraph(Text("x")))))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("Wrap mismatch (-want +got):\n%s", diff)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
}

func TestWrapInsideListItem(t *testing.T) {
	d := NewDoc(Block(TypeBulletList, nil, Block(TypeListItem, nil, Paragraph(Text("a")), Paragraph(Text("b")))))

	tests := []struct {
		wrapper, item string
	}{
		{wrapper: TypeBlockquote},
		{wrapper: TypeBulletList, item: TypeListItem},
		{wrapper: TypeTaskList, item: TypeTaskItem},
	}
	for _, tt := range tests {
		t.Run(tt.wrapper, func(t *testing.T) {
			if _, _, err := Wrap(d, 3, tt.wrapper, tt.item); !errors.Is(err, ErrSchema) {
				t.Fatalf("Wrap() on item head error = %v, want ErrSchema", err)
			}
			out, _, err := Wrap(d, 5, tt.wrapper, tt.item)
			if err != nil {
				t.Fatalf("Wrap() on second block error = %v", err)
			}
			if diff := cmp.Diff(Normalize(out), out); diff != "" {
				t.Fatalf("wrapped document not normalized (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   *Node
		want *Node
	}{
		{name: "empty doc", in: NewDoc(), want: NewDoc(Paragraph())},
		{name: "empty list removed", in: NewDoc(Block(TypeBulletList, nil), Paragraph(Text("a"))), want: NewDoc(Paragraph(Text("a")))},
		{name: "inline at block level wrapped", in: NewDoc(Text("a")), want: NewDoc(Paragraph(Text("a")))},
		{name: "empty cell refilled", in: NewDoc(Block(TypeTable, nil, Block(TypeTableRow, nil, Block(TypeTableCell, nil)))),
			want: NewDoc(Block(TypeTable, nil, Block(TypeTableRow, nil, Block(TypeTableCell, nil, Paragraph()))))},
		{name: "unknown node dropped", in: NewDoc(Block("iframe", nil), Paragraph()), want: NewDoc(Paragraph())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Normalize(tt.in)); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlainTextAndTextBetween(t *testing.T) {
	d := NewDoc(
		Block(TypeBulletList, nil, Block(TypeListItem, nil, Paragraph(Text("one", Mark{Type: MarkBold})), Paragraph(Text("two")))),
	)
	if got := PlainText(d.Content[0].Content[0]); got != "one\ntwo" {
		t.Fatalf("PlainText() = %q", got)
	}
	if got := d.TextBetween(0, d.ContentSize(), "|"); got != "one|two" {
		t.Fatalf("TextBetween() = %q", got)
	}
}

func TestNearestTextPos(t *testing.T) {
	d := NewDoc(Block(TypeHorizontalRule, nil), Paragraph(Text("a")))
	if got := NearestTextPos(d, 0); got != 2 {
		t.Fatalf("NearestTextPos(0) = %d, want 2", got)
	}
	if got := NearestTextPos(d, 99); got != 3 {
		t.Fatalf("NearestTextPos(99) = %d, want 3", got)
	}
}

func TestParseJSON(t *testing.T) {
	d, err := ParseJSON([]byte(`{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Hi"}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(d, NewDoc(Heading(2, Text("Hi")))) {
		t.Fatalf("ParseJSON() = %+v", d)
	}
	if _, err := ParseJSON([]byte(`{"type":"paragraph"}`)); !errors.Is(err, ErrSchema) {
		t.Fatalf("ParseJSON() error = %v, want ErrSchema", err)
	}
}
