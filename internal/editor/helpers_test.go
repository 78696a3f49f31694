package editor

import (
	"io"
	"log"
	"testing"

	"netlabs/api/internal/clipboard"
	"netlabs/api/internal/doc"
	"netlabs/api/internal/engine"
)

type fakeLayout struct {
	rect      engine.Rect
	err       error
	container engine.Container
	viewport  engine.Size
}

func (f *fakeLayout) CoordsAtPos(*doc.Node, int) (engine.Rect, error) {
	return f.rect, f.err
}

func (f *fakeLayout) Container(*doc.Node) (engine.Container, error) {
	return f.container, f.err
}

func (f *fakeLayout) Viewport() engine.Size {
	return f.viewport
}

type testEditor struct {
	*Editor
	clip    *clipboard.Memory
	changes []string
}

func newTestEditor(t *testing.T, value string, mutate ...func(*Config)) *testEditor {
	t.Helper()
	te := &testEditor{clip: &clipboard.Memory{}}
	cfg := Config{
		Editable:  true,
		Value:     value,
		Clipboard: te.clip,
		Logger:    log.New(io.Discard, "", 0),
		OnChange: func(html string) {
			te.changes = append(te.changes, html)
		},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	te.Editor = New(cfg)
	return te
}

func (te *testEditor) doc() *doc.Node {
	return te.Engine().State().Doc
}

func (te *testEditor) typeText(t *testing.T, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := te.HandleText(text); err != nil {
			t.Fatalf("HandleText(%q) failed: %v", text, err)
		}
	}
}

func (te *testEditor) key(t *testing.T, key Key) bool {
	t.Helper()
	handled, err := te.HandleKey(key)
	if err != nil {
		t.Fatalf("HandleKey(%s) failed: %v", key, err)
	}
	return handled
}

func (te *testEditor) cursor(t *testing.T, pos int) {
	t.Helper()
	if err := te.Select(pos, pos); err != nil {
		t.Fatalf("Select(%d) failed: %v", pos, err)
	}
}

func lastNotice(t *testing.T, notices []Notice) Notice {
	t.Helper()
	if len(notices) == 0 {
		t.Fatal("expected a notice")
	}
	return notices[len(notices)-1]
}
