package editor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

func TestControlsOffset(t *testing.T) {
	tests := []struct {
		name      string
		rect      engine.Rect
		container engine.Container
		want      float64
	}{
		{
			name:      "container coordinates",
			rect:      engine.Rect{Top: 100},
			container: engine.Container{Top: 50, ScrollTop: 30, ScrollHeight: 1000},
			want:      82,
		},
		{
			name:      "above container",
			rect:      engine.Rect{Top: -400},
			container: engine.Container{Top: 0, ScrollHeight: 1000},
			want:      8,
		},
		{
			name:      "past bottom",
			rect:      engine.Rect{Top: 5000},
			container: engine.Container{Top: 0, ScrollHeight: 1000},
			want:      952,
		},
		{
			name:      "short container keeps lower bound",
			rect:      engine.Rect{Top: 300},
			container: engine.Container{ScrollHeight: 20},
			want:      8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ControlsOffset(tt.rect, tt.container); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestControlsOffsetStaysInContainer(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<p>line %d</p>", i)
	}
	grid := engine.NewGridLayout(1024, 300)
	te := newTestEditor(t, b.String(), func(c *Config) { c.Layout = grid })

	for _, scroll := range []float64{0, 200, 10000} {
		grid.ScrollTo(te.doc(), scroll)
		container, err := grid.Container(te.doc())
		if err != nil {
			t.Fatalf("Container failed: %v", err)
		}
		upper := max(controlsMinOffset, container.ScrollHeight-controlsBottomGap)
		for _, blk := range textblocks(te.doc()) {
			for _, pos := range []int{blk.From, blk.To} {
				te.cursor(t, pos)
				st := te.controls.State()
				if !st.Visible {
					t.Fatalf("scroll %v pos %d: expected visible controls", scroll, pos)
				}
				if st.VerticalOffset < controlsMinOffset || st.VerticalOffset > upper {
					t.Fatalf("scroll %v pos %d: offset %v outside [%d,%v]", scroll, pos, st.VerticalOffset, controlsMinOffset, upper)
				}
			}
		}
	}
}

func TestControlsHidden(t *testing.T) {
	layout := &fakeLayout{
		rect:      engine.Rect{Top: 100},
		viewport:  engine.Size{Width: 1024, Height: 768},
		container: engine.Container{ScrollHeight: 1000},
	}
	te := newTestEditor(t, "<p>abc</p>", func(c *Config) { c.Layout = layout })
	if !te.View().Controls.Visible {
		t.Fatal("expected controls visible for a cursor in a block")
	}

	if err := te.Select(1, 3); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if te.View().Controls.Visible {
		t.Error("expected controls hidden for a range selection")
	}

	layout.err = errors.New("detached")
	te.cursor(t, 2)
	if te.View().Controls.Visible {
		t.Error("expected controls hidden when coordinates fail")
	}
	layout.err = nil
	te.cursor(t, 1)
	if !te.View().Controls.Visible {
		t.Error("expected controls back once coordinates resolve")
	}
}

func TestControlsMenusAreExclusive(t *testing.T) {
	te := newTestEditor(t, "<p>abc</p>")
	te.ToggleMenu(MenuQuick)
	if got := te.controls.State().OpenMenu; got != MenuQuick {
		t.Fatalf("expected quick menu open, got %q", got)
	}
	te.ToggleMenu(MenuActions)
	if got := te.controls.State().OpenMenu; got != MenuActions {
		t.Fatalf("expected actions menu to replace quick menu, got %q", got)
	}
	te.ToggleMenu(MenuActions)
	if got := te.controls.State().OpenMenu; got != MenuNone {
		t.Fatalf("expected toggle to close, got %q", got)
	}

	te.ToggleMenu(MenuQuick)
	te.PointerDown(Target{"icon", QuickTriggerID})
	if got := te.controls.State().OpenMenu; got != MenuQuick {
		t.Errorf("expected click on trigger to keep menu, got %q", got)
	}
	te.PointerDown(Target{"item", QuickMenuID, "body"})
	if got := te.controls.State().OpenMenu; got != MenuQuick {
		t.Errorf("expected click inside menu to keep it, got %q", got)
	}
	te.PointerDown(Target{"p", "surface"})
	if got := te.controls.State().OpenMenu; got != MenuNone {
		t.Errorf("expected outside click to close, got %q", got)
	}

	te.ToggleMenu(MenuActions)
	if !te.key(t, KeyEscape) {
		t.Fatal("expected Escape to close the menu")
	}
	if got := te.controls.State().OpenMenu; got != MenuNone {
		t.Errorf("expected Escape to close, got %q", got)
	}
}

func TestDuplicateBlock(t *testing.T) {
	tests := []struct {
		name  string
		value string
		pos   int
		want  *doc.Node
	}{
		{
			name:  "paragraph",
			value: "<p>a</p><p>b</p>",
			pos:   1,
			want:  doc.NewDoc(doc.Paragraph(doc.Text("a")), doc.Paragraph(doc.Text("a")), doc.Paragraph(doc.Text("b"))),
		},
		{
			name:  "list item",
			value: "<ul><li><p>x</p></li></ul>",
			pos:   3,
			want: doc.NewDoc(doc.Block(doc.TypeBulletList, nil,
				doc.Block(doc.TypeListItem, nil, doc.Paragraph(doc.Text("x"))),
				doc.Block(doc.TypeListItem, nil, doc.Paragraph(doc.Text("x"))),
			)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEditor(t, tt.value)
			te.cursor(t, tt.pos)
			before := te.doc()
			ref := LocateActiveBlock(te.Engine().State())
			if err := te.Duplicate(); err != nil {
				t.Fatalf("Duplicate failed: %v", err)
			}
			after := te.doc()
			if !doc.Equal(after, tt.want) {
				t.Fatalf("unexpected document: %s", te.HTML())
			}
			rp, err := after.Resolve(ref.RangeEnd + 1)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if copyNode := rp.Node(ref.Depth); !doc.Equal(copyNode, ref.Node) {
				t.Errorf("expected copy adjacent to original")
			}
			if got, want := doc.TextblockCount(after), doc.TextblockCount(before)+1; got != want {
				t.Errorf("expected %d textblocks, got %d", want, got)
			}
		})
	}
}

func TestDeleteOnlyBlockLeavesValidDocument(t *testing.T) {
	te := newTestEditor(t, "<p>only</p>")
	if err := te.DeleteBlock(); err != nil {
		t.Fatalf("DeleteBlock failed: %v", err)
	}
	if !doc.Equal(te.doc(), doc.NewDoc(doc.Paragraph())) {
		t.Fatalf("expected a single empty paragraph, got %s", te.HTML())
	}
	if head := te.Engine().State().Selection.Head; head != 1 {
		t.Errorf("expected cursor at 1, got %d", head)
	}
}

func TestDeleteBlockRemovesOnlyActiveBlock(t *testing.T) {
	te := newTestEditor(t, "<p>a</p><h2>b</h2><p>c</p>")
	te.cursor(t, 4)
	if err := te.DeleteBlock(); err != nil {
		t.Fatalf("DeleteBlock failed: %v", err)
	}
	want := doc.NewDoc(doc.Paragraph(doc.Text("a")), doc.Paragraph(doc.Text("c")))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
}

func TestBlockActionWithoutBlock(t *testing.T) {
	te := newTestEditor(t, "<p>only</p>")
	if err := te.Select(1, 3); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	before := te.doc()
	err := te.DeleteBlock()
	if !errors.Is(err, ErrNoBlock) {
		t.Fatalf("expected ErrNoBlock, got %v", err)
	}
	if !doc.Equal(te.doc(), before) {
		t.Error("expected document unchanged")
	}
	if n := lastNotice(t, te.Notices()); n.Level != NoticeError || n.Message != "Place the cursor inside a block first" {
		t.Errorf("unexpected notice: %+v", n)
	}
}

func TestCopyListItemPlainText(t *testing.T) {
	te := newTestEditor(t, "<ul><li><p><strong>Router</strong> config</p></li><li><p>other</p></li></ul>")
	te.cursor(t, 3)
	if err := te.Copy(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	got, _ := te.clip.ReadText()
	if got != "Router config" {
		t.Fatalf("expected %q, got %q", "Router config", got)
	}
	if n := lastNotice(t, te.Notices()); n.Level != NoticeSuccess {
		t.Errorf("expected success notice, got %+v", n)
	}
}

func TestCopyFailure(t *testing.T) {
	te := newTestEditor(t, "<p>show ip route</p>")
	te.clip.Err = errors.New("permission denied")
	before := te.doc()
	if err := te.Copy(); !errors.Is(err, ErrClipboard) {
		t.Fatalf("expected ErrClipboard, got %v", err)
	}
	if !doc.Equal(te.doc(), before) {
		t.Error("expected document unchanged")
	}
	if n := lastNotice(t, te.Notices()); n.Level != NoticeError || n.Message != "Could not copy to clipboard" {
		t.Errorf("unexpected notice: %+v", n)
	}
}

func TestQuickSlashOpensMenu(t *testing.T) {
	te := newTestEditor(t, "<p>a</p>")
	if err := te.QuickSlash(); err != nil {
		t.Fatalf("QuickSlash failed: %v", err)
	}
	want := doc.NewDoc(doc.Paragraph(doc.Text("a")), doc.Paragraph(doc.Text("/")))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
	st := te.menu.State()
	if !st.Open || st.Trigger != 4 || st.Query != "" {
		t.Fatalf("expected open menu at 4, got %+v", st)
	}

	te.typeText(t, "code")
	te.key(t, KeyEnter)
	if got := te.doc().Content[1].Type; got != doc.TypeCodeBlock || te.doc().Content[1].ContentSize() != 0 {
		t.Fatalf("expected empty code block, got %s", te.HTML())
	}
}

func TestQuickInsertions(t *testing.T) {
	te := newTestEditor(t, "<p>a</p>")
	if err := te.QuickCodeBlock(); err != nil {
		t.Fatalf("QuickCodeBlock failed: %v", err)
	}
	want := doc.NewDoc(doc.Paragraph(doc.Text("a")), doc.CodeBlock("", codeSnippet))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
	if head := te.Engine().State().Selection.Head; head != 4 {
		t.Errorf("expected cursor inside the code block at 4, got %d", head)
	}

	te.cursor(t, 1)
	if err := te.QuickDivider(); err != nil {
		t.Fatalf("QuickDivider failed: %v", err)
	}
	if got := te.doc().Content[1].Type; got != doc.TypeHorizontalRule {
		t.Fatalf("expected divider after first block, got %s", got)
	}
	if got := te.controls.State().OpenMenu; got != MenuNone {
		t.Errorf("expected menus closed after an action, got %q", got)
	}
}
