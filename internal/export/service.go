package export

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"netlabs/api/internal/htmlcodec"
)

// DataStore loads what an export needs.
type DataStore interface {
	GetDocumentInfo(ctx context.Context, id string) (DocumentInfo, error)
	// GetDocumentHTML returns the saved HTML at revision, or the latest
	// saved HTML when revision is blank.
	GetDocumentHTML(ctx context.Context, id, revision string) (string, error)
}

// PDFRenderer turns a complete HTML page into a PDF.
type PDFRenderer func(ctx context.Context, html, title string) (*Result, error)

// Service provides document export functionality
type Service struct {
	store   DataStore
	pdf     PDFRenderer
	timeout time.Duration
}

// NewService creates an export service printing PDFs with headless Chrome.
func NewService(store DataStore, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{store: store, pdf: exportPDF, timeout: timeout}
}

// WithRenderer replaces the PDF renderer.
func (s *Service) WithRenderer(r PDFRenderer) *Service {
	s.pdf = r
	return s
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetDocumentInfo(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	revision := req.Revision
	if revision == "latest" {
		revision = ""
	}
	body, err := s.store.GetDocumentHTML(ctx, req.DocumentID, revision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	page, err := RenderDocumentHTML(TemplateData{
		Title:       info.Title,
		ContentHTML: template.HTML(htmlcodec.Sanitize(body)),
		Author:      info.UpdatedBy,
		UpdatedAt:   info.UpdatedAt,
		Version:     info.Version,
		Revision:    revision,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(info.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF, "":
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.pdf(ctx, page, info.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
