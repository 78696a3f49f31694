package editor

import (
	"errors"
	"testing"

	"netlabs/api/internal/doc"
)

type recordingRequester struct {
	reqs []URLRequest
}

func (r *recordingRequester) RequestURL(req URLRequest) {
	r.reqs = append(r.reqs, req)
}

type callbacks struct {
	done      []*string
	cancelled int
}

func (c *callbacks) request(kind DialogKind, allowUnset bool) URLRequest {
	return URLRequest{
		Kind:       kind,
		AllowUnset: allowUnset,
		Done:       func(url *string) { c.done = append(c.done, url) },
		Cancelled:  func() { c.cancelled++ },
	}
}

func TestDialogsConfirm(t *testing.T) {
	var d Dialogs
	var cb callbacks
	d.RequestURL(cb.request(DialogImage, false))

	if err := d.SetValue("   "); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := d.Confirm(); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
	st := d.State()
	if !st.Open || st.Error != "Please enter a URL" {
		t.Fatalf("expected open dialog with error, got %+v", st)
	}
	if len(cb.done) != 0 {
		t.Fatal("expected no callback for blank input")
	}

	d.SetValue(" https://cdn.example.com/r1.png ")
	if d.State().Error != "" {
		t.Error("expected editing to clear the error")
	}
	if err := d.Confirm(); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if len(cb.done) != 1 || cb.done[0] == nil || *cb.done[0] != "https://cdn.example.com/r1.png" {
		t.Fatalf("expected trimmed URL, got %v", cb.done)
	}
	if d.State().Open {
		t.Error("expected dialog closed")
	}
	if err := d.Confirm(); !errors.Is(err, ErrNoDialog) {
		t.Errorf("expected ErrNoDialog, got %v", err)
	}
	if len(cb.done) != 1 || cb.cancelled != 0 {
		t.Errorf("expected exactly one completion, got done=%d cancelled=%d", len(cb.done), cb.cancelled)
	}
}

func TestDialogsRemoveAndCancel(t *testing.T) {
	var d Dialogs
	var cb callbacks

	d.RequestURL(cb.request(DialogLink, false))
	if err := d.Remove(); !errors.Is(err, ErrUnsetNotAllowed) {
		t.Fatalf("expected ErrUnsetNotAllowed, got %v", err)
	}
	d.Cancel()
	if cb.cancelled != 1 || len(cb.done) != 0 {
		t.Fatalf("expected cancel without completion, got done=%d cancelled=%d", len(cb.done), cb.cancelled)
	}
	d.Cancel()
	if cb.cancelled != 1 {
		t.Errorf("expected second cancel to be a no-op")
	}

	d.RequestURL(cb.request(DialogLink, true))
	if err := d.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(cb.done) != 1 || cb.done[0] != nil {
		t.Fatalf("expected removal callback with nil URL, got %v", cb.done)
	}
	if err := d.SetValue("x"); !errors.Is(err, ErrNoDialog) {
		t.Errorf("expected ErrNoDialog, got %v", err)
	}
}

func TestDialogsNewRequestCancelsPrevious(t *testing.T) {
	var d Dialogs
	var first, second callbacks
	d.RequestURL(first.request(DialogLink, false))
	d.RequestURL(second.request(DialogImage, false))
	if first.cancelled != 1 {
		t.Fatalf("expected first request cancelled, got %d", first.cancelled)
	}
	if d.State().Kind != DialogImage {
		t.Fatalf("expected image dialog, got %s", d.State().Kind)
	}
	d.SetValue("https://example.com/a.png")
	d.Confirm()
	if len(first.done) != 0 || len(second.done) != 1 {
		t.Errorf("expected only the second request to complete")
	}
}

func TestPromptRequester(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		ok         bool
		allowUnset bool
		wantURL    string
		wantNil    bool
		wantCancel bool
	}{
		{name: "answer", answer: "  https://example.com ", ok: true, wantURL: "https://example.com"},
		{name: "dismissed", answer: "https://example.com", ok: false, wantCancel: true},
		{name: "blank cancels", answer: "  ", ok: true, wantCancel: true},
		{name: "blank removes", answer: "", ok: true, allowUnset: true, wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cb callbacks
			var gotMessage string
			p := PromptRequester{Prompt: func(message, initial string) (string, bool) {
				gotMessage = message
				return tt.answer, tt.ok
			}}
			req := cb.request(DialogLink, tt.allowUnset)
			req.Mode = ModeImage
			p.RequestURL(req)

			if gotMessage != "Image URL" {
				t.Errorf("expected image prompt, got %q", gotMessage)
			}
			if tt.wantCancel {
				if cb.cancelled != 1 || len(cb.done) != 0 {
					t.Fatalf("expected cancel, got done=%d cancelled=%d", len(cb.done), cb.cancelled)
				}
				return
			}
			if len(cb.done) != 1 {
				t.Fatalf("expected one completion, got %d", len(cb.done))
			}
			if tt.wantNil {
				if cb.done[0] != nil {
					t.Fatalf("expected nil URL, got %q", *cb.done[0])
				}
				return
			}
			if cb.done[0] == nil || *cb.done[0] != tt.wantURL {
				t.Fatalf("expected %q, got %v", tt.wantURL, cb.done[0])
			}
		})
	}
}

func TestImageCommandRejectsBlankURL(t *testing.T) {
	te := newTestEditor(t, "<p></p>")
	te.typeText(t, "/", "image")
	te.key(t, KeyEnter)

	if st := te.View().Dialog; !st.Open || st.Kind != DialogImage {
		t.Fatalf("expected image dialog, got %+v", st)
	}
	before := te.doc()
	if !doc.Equal(before, doc.NewDoc(doc.Paragraph())) {
		t.Fatalf("expected trigger text removed, got %s", te.HTML())
	}

	te.SetDialogValue("   ")
	handled, err := te.HandleKey(KeyEnter)
	if !handled || !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected Enter to fail validation, got handled=%t err=%v", handled, err)
	}
	if st := te.View().Dialog; !st.Open || st.Error == "" {
		t.Fatalf("expected dialog open with error, got %+v", st)
	}
	if !doc.Equal(te.doc(), before) {
		t.Fatal("expected no mutation on blank URL")
	}

	te.SetDialogValue("https://cdn.example.com/r1.png")
	if err := te.ConfirmDialog(); err != nil {
		t.Fatalf("ConfirmDialog failed: %v", err)
	}
	want := doc.NewDoc(doc.Block(doc.TypeImage, map[string]any{"src": "https://cdn.example.com/r1.png"}), doc.Paragraph())
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
	if head := te.Engine().State().Selection.Head; head != 2 {
		t.Errorf("expected cursor after image at 2, got %d", head)
	}
}

func TestLinkSelection(t *testing.T) {
	te := newTestEditor(t, "<p>visit example.com now</p>")
	if err := te.Select(7, 18); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !te.View().Bubble.Visible {
		t.Fatal("expected bubble menu for a range selection")
	}
	if err := te.Link(); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if st := te.View().Dialog; !st.Open || st.AllowUnset || st.Value != "" {
		t.Fatalf("expected empty link dialog, got %+v", st)
	}
	te.SetDialogValue("https://example.com")
	if err := te.ConfirmDialog(); err != nil {
		t.Fatalf("ConfirmDialog failed: %v", err)
	}

	want := doc.NewDoc(doc.Paragraph(
		doc.Text("visit "),
		doc.Text("example.com", doc.Link("https://example.com")),
		doc.Text(" now"),
	))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
	if got := te.View().Bubble.Href; got != "https://example.com" {
		t.Errorf("expected bubble to show href, got %q", got)
	}
}

func TestRemoveLinkKeepsText(t *testing.T) {
	te := newTestEditor(t, `<p>visit <a href="https://example.com">example.com</a> now</p>`)
	te.Select(7, 18)
	if err := te.Link(); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	st := te.View().Dialog
	if !st.AllowUnset || st.Value != "https://example.com" {
		t.Fatalf("expected prefilled removable link, got %+v", st)
	}
	if err := te.RemoveLink(); err != nil {
		t.Fatalf("RemoveLink failed: %v", err)
	}
	want := doc.NewDoc(doc.Paragraph(doc.Text("visit example.com now")))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
}

func TestLinkFollowsEditsWhileDialogOpen(t *testing.T) {
	te := newTestEditor(t, "<p>visit example.com now</p>")
	te.Select(7, 18)
	te.Link()
	te.cursor(t, 1)
	te.typeText(t, "Please ")

	te.SetDialogValue("https://example.com")
	if err := te.ConfirmDialog(); err != nil {
		t.Fatalf("ConfirmDialog failed: %v", err)
	}
	var linked []string
	te.doc().TextNodesBetween(0, te.doc().ContentSize(), func(n *doc.Node, _ int) {
		if doc.HasMark(n.Marks, doc.MarkLink) {
			linked = append(linked, n.Text)
		}
	})
	if len(linked) != 1 || linked[0] != "example.com" {
		t.Fatalf("expected link on example.com, got %v", linked)
	}
}

func TestCancelledRequestNeverApplies(t *testing.T) {
	rec := &recordingRequester{}
	te := newTestEditor(t, "<p>abc</p>", func(c *Config) { c.RequestURL = rec })
	before := te.doc()
	if err := te.RunCommand(KindLink); err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	if len(rec.reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(rec.reqs))
	}
	rec.reqs[0].Cancelled()
	if !doc.Equal(te.doc(), before) {
		t.Fatalf("expected no change after cancel, got %s", te.HTML())
	}
}

func TestEmbedLinkWithPrompt(t *testing.T) {
	url := "https://lab.example.net/topology"
	prompt := PromptRequester{Prompt: func(string, string) (string, bool) { return url, true }}
	te := newTestEditor(t, "<p></p>", func(c *Config) { c.RequestURL = prompt })
	if err := te.RunCommand(KindEmbedLink); err != nil {
		t.Fatalf("RunCommand failed: %v", err)
	}
	want := doc.NewDoc(doc.Paragraph(doc.Text(url, doc.Link(url))))
	if !doc.Equal(te.doc(), want) {
		t.Fatalf("unexpected document: %s", te.HTML())
	}
}

func TestDialogEscapeCancels(t *testing.T) {
	te := newTestEditor(t, "<p>abc</p>")
	te.Select(1, 4)
	te.Link()
	before := te.doc()
	if !te.key(t, KeyEscape) {
		t.Fatal("expected Escape to be consumed by the dialog")
	}
	if te.View().Dialog.Open {
		t.Fatal("expected dialog closed")
	}
	if !doc.Equal(te.doc(), before) {
		t.Error("expected no change after cancel")
	}
}
