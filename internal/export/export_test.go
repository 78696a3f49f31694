package export

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	info      DocumentInfo
	html      map[string]string
	revisions []string
}

func (f *fakeStore) GetDocumentInfo(_ context.Context, id string) (DocumentInfo, error) {
	if id != f.info.ID {
		return DocumentInfo{}, errors.New("not found")
	}
	return f.info, nil
}

func (f *fakeStore) GetDocumentHTML(_ context.Context, _ string, revision string) (string, error) {
	f.revisions = append(f.revisions, revision)
	html, ok := f.html[revision]
	if !ok {
		return "", errors.New("unknown revision")
	}
	return html, nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		info: DocumentInfo{
			ID:        "doc_1",
			Title:     "Router Lab",
			UpdatedBy: "Avery",
			UpdatedAt: time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
			Version:   3,
		},
		html: map[string]string{
			"":        `<p>Latest <script>alert(1)</script></p>`,
			"abc1234": `<p>Older</p>`,
		},
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatPDF, false},
		{"pdf", FormatPDF, false},
		{"html", FormatHTML, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	data := TemplateData{
		Title:       "Test Document",
		ContentHTML: template.HTML("<p>This is the content.</p>"),
		Author:      "Test Author",
		UpdatedAt:   time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC),
		Version:     2,
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}
	for _, want := range []string{"Test Document", "Test Author", "Jan 2, 2026 15:04", "version 2", "<p>This is the content.</p>"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "&lt;p&gt;") {
		t.Error("HTML content was escaped - should be rendered as raw HTML")
	}
}

func TestExportHTMLSanitizesContent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, time.Second)

	result, err := svc.Export(context.Background(), Request{DocumentID: "doc_1", Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	page := string(result.Data)
	if strings.Contains(page, "<script>") {
		t.Fatalf("export should not contain script tags: %s", page)
	}
	if !strings.Contains(page, "Latest") {
		t.Fatalf("export missing content: %s", page)
	}
	if result.Filename != "Router-Lab.html" || !strings.HasPrefix(result.MimeType, "text/html") {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
}

func TestExportPDFUsesRenderer(t *testing.T) {
	store := newFakeStore()
	var gotHTML string
	var hadDeadline bool
	svc := NewService(store, time.Second).WithRenderer(func(ctx context.Context, html, title string) (*Result, error) {
		_, hadDeadline = ctx.Deadline()
		gotHTML = html
		return &Result{Data: []byte("%PDF-1.7"), Filename: sanitizeFilename(title) + ".pdf", MimeType: "application/pdf"}, nil
	})

	result, err := svc.Export(context.Background(), Request{DocumentID: "doc_1", Revision: "abc1234", Format: FormatPDF})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !hadDeadline {
		t.Error("renderer context should carry the export timeout")
	}
	if !strings.Contains(gotHTML, "<p>Older</p>") || !strings.Contains(gotHTML, "revision abc1234") {
		t.Fatalf("renderer got unexpected page: %s", gotHTML)
	}
	if result.Filename != "Router-Lab.pdf" {
		t.Fatalf("unexpected filename %q", result.Filename)
	}
}

func TestExportErrors(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, time.Second)

	if _, err := svc.Export(context.Background(), Request{DocumentID: "doc_missing", Format: FormatHTML}); err == nil {
		t.Fatal("expected error for missing document")
	}
	_, err := svc.Export(context.Background(), Request{DocumentID: "doc_1", Revision: "deadbee", Format: FormatHTML})
	if !errors.Is(err, ErrContentUnavailable) {
		t.Fatalf("expected ErrContentUnavailable, got %v", err)
	}
	_, err = svc.Export(context.Background(), Request{DocumentID: "doc_1", Format: "docx"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	store.revisions = nil
	if _, err := svc.Export(context.Background(), Request{DocumentID: "doc_1", Revision: "latest", Format: FormatHTML}); err != nil {
		t.Fatalf("Export(latest) error = %v", err)
	}
	if store.revisions[0] != "" {
		t.Fatalf("latest should load the head, got %q", store.revisions[0])
	}
}
