package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"netlabs/api/internal/assets"
	"netlabs/api/internal/config"
	"netlabs/api/internal/doc"
	"netlabs/api/internal/export"
	"netlabs/api/internal/gitrepo"
	"netlabs/api/internal/htmlcodec"
	"netlabs/api/internal/search"
	"netlabs/api/internal/session"
	"netlabs/api/internal/store"
	"netlabs/api/internal/util"
)

type dataStore interface {
	ListDocuments(context.Context) ([]store.DocumentSummary, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) (store.Document, error)
	SaveDocumentHTML(ctx context.Context, documentID, html, text, updatedBy string, baseVersion int) (store.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Ping(ctx context.Context) error
}

type gitService interface {
	EnsureDocumentRepo(string, gitrepo.Content, string) error
	CommitRevision(string, gitrepo.Content, string, string) (gitrepo.Revision, bool, error)
	Head(string) (gitrepo.Content, gitrepo.Revision, error)
	GetRevision(string, string) (gitrepo.Content, gitrepo.Revision, error)
	History(string, int) ([]gitrepo.Revision, error)
	DeleteDocumentRepo(string) error
}

type draftStore interface {
	SaveDraft(context.Context, session.Draft) error
	LoadDraft(ctx context.Context, documentID, author string) (session.Draft, error)
	ListDrafts(ctx context.Context, documentID string) ([]session.Draft, error)
	DeleteDraft(ctx context.Context, documentID, author string) error
	Ping(ctx context.Context) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexDocument(search.DocumentRecord)
	DeleteDocument(id string)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type imageUploader interface {
	UploadImage(ctx context.Context, r io.Reader, uploadedBy string) (store.Asset, error)
	MaxBytes() int64
}

// Deps are the collaborators of a Service. Drafts, Search and Assets are
// optional.
type Deps struct {
	Store  dataStore
	Git    gitService
	Drafts draftStore
	Search searchService
	Assets imageUploader
}

var errUploadsDisabled = domainError(http.StatusServiceUnavailable, "UPLOADS_DISABLED", assets.ErrDisabled.Error(), nil)

type Service struct {
	cfg      config.Config
	store    dataStore
	git      gitService
	drafts   draftStore
	search   searchService
	assets   imageUploader
	exporter exporter
	now      func() time.Time

	sessionsMu sync.Mutex
	sessions   map[string]*editSession
}

func New(cfg config.Config, deps Deps) *Service {
	s := &Service{
		cfg:      cfg,
		store:    deps.Store,
		git:      deps.Git,
		drafts:   deps.Drafts,
		search:   deps.Search,
		assets:   deps.Assets,
		now:      time.Now,
		sessions: make(map[string]*editSession),
	}
	s.exporter = export.NewService(s, cfg.ExportTimeout)
	return s
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingDrafts checks the draft store. It is nil when drafts are disabled.
func (s *Service) PingDrafts(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	return s.drafts.Ping(ctx)
}

func (s *Service) DraftsEnabled() bool {
	return s.drafts != nil
}

// Bootstrap makes sure every stored document has a revision repository
// whose head matches the database. A save whose commit failed is recorded
// as a sync revision.
func (s *Service) Bootstrap(ctx context.Context) error {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, summary := range documents {
		item, err := s.store.GetDocument(ctx, summary.ID)
		if err != nil {
			return err
		}
		current := gitrepo.Content{Title: item.Title, HTML: item.HTML}
		if err := s.git.EnsureDocumentRepo(item.ID, current, item.CreatedBy); err != nil {
			return fmt.Errorf("ensure repo for %s: %w", item.ID, err)
		}
		head, _, err := s.git.Head(item.ID)
		if err != nil {
			return fmt.Errorf("read head of %s: %w", item.ID, err)
		}
		if !gitrepo.HasChanges(head, current) {
			continue
		}
		message := fmt.Sprintf("Sync version %d", item.Version)
		if _, _, err := s.git.CommitRevision(item.ID, current, item.UpdatedBy, message); err != nil {
			return fmt.Errorf("sync repo for %s: %w", item.ID, err)
		}
		log.Printf("app: %s history was behind, committed %q", item.ID, message)
	}
	return nil
}

func (s *Service) ListDocuments(ctx context.Context) ([]store.DocumentSummary, error) {
	return s.store.ListDocuments(ctx)
}

func (s *Service) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Document{}, notFound("Document")
	}
	return item, err
}

// CreateDocument stores a new document. The HTML is normalized to the
// editor's schema first so the first revision equals what an editor saves.
func (s *Service) CreateDocument(ctx context.Context, title, html, author string) (store.Document, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return store.Document{}, validationError("title is required")
	}
	if author == "" {
		return store.Document{}, validationError("author is required")
	}

	node, err := htmlcodec.Parse(html)
	if err != nil {
		return store.Document{}, validationError(fmt.Sprintf("html could not be parsed: %v", err))
	}
	normalized := htmlcodec.Serialize(node)

	item, err := s.store.InsertDocument(ctx, store.Document{
		ID:        util.NewID(util.PrefixDocument),
		Title:     title,
		HTML:      normalized,
		Text:      plainText(node),
		CreatedBy: author,
	})
	if err != nil {
		return store.Document{}, err
	}
	if err := s.git.EnsureDocumentRepo(item.ID, gitrepo.Content{Title: item.Title, HTML: item.HTML}, author); err != nil {
		return store.Document{}, fmt.Errorf("create revision history: %w", err)
	}
	s.index(item)
	return item, nil
}

// persist writes a save through to the database, the revision history and
// the search index.
func (s *Service) persist(ctx context.Context, documentID, author, html string, baseVersion int) (store.Document, error) {
	node, err := htmlcodec.Parse(html)
	if err != nil {
		return store.Document{}, fmt.Errorf("parse saved html: %w", err)
	}
	item, err := s.store.SaveDocumentHTML(ctx, documentID, html, plainText(node), author, baseVersion)
	if err != nil {
		return store.Document{}, err
	}

	message := fmt.Sprintf("Save version %d", item.Version)
	if _, _, err := s.git.CommitRevision(documentID, gitrepo.Content{Title: item.Title, HTML: item.HTML}, author, message); err != nil {
		log.Printf("app: commit revision for %s: %v", documentID, err)
	}
	s.index(item)
	if s.drafts != nil {
		if err := s.drafts.DeleteDraft(ctx, documentID, author); err != nil {
			log.Printf("app: delete draft for %s/%s: %v", documentID, author, err)
		}
	}
	return item, nil
}

// DeleteDocument removes the document with its open sessions, history,
// drafts and search entry. Only the database delete can fail the call.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Document")
		}
		return err
	}
	if n := s.closeDocumentSessions(documentID); n > 0 {
		log.Printf("app: closed %d sessions of deleted document %s", n, documentID)
	}
	if err := s.git.DeleteDocumentRepo(documentID); err != nil {
		log.Printf("app: delete history of %s: %v", documentID, err)
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	if s.drafts != nil {
		drafts, err := s.drafts.ListDrafts(ctx, documentID)
		if err != nil {
			log.Printf("app: list drafts of %s: %v", documentID, err)
		}
		for _, d := range drafts {
			if err := s.drafts.DeleteDraft(ctx, documentID, d.Author); err != nil {
				log.Printf("app: delete draft %s/%s: %v", documentID, d.Author, err)
			}
		}
	}
	return nil
}

// DraftSummary describes an unsaved draft without its HTML.
type DraftSummary struct {
	Author      string    `json:"author"`
	BaseVersion int       `json:"baseVersion"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Stale       bool      `json:"stale"`
}

// ListDrafts returns who has unsaved changes to the document, newest
// first. A draft is stale when the document was saved since it was based.
func (s *Service) ListDrafts(ctx context.Context, documentID string) ([]DraftSummary, error) {
	item, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := []DraftSummary{}
	if s.drafts == nil {
		return out, nil
	}
	drafts, err := s.drafts.ListDrafts(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for _, d := range drafts {
		out = append(out, DraftSummary{
			Author:      d.Author,
			BaseVersion: d.BaseVersion,
			UpdatedAt:   d.UpdatedAt,
			Stale:       d.BaseVersion != item.Version,
		})
	}
	return out, nil
}

func (s *Service) index(item store.Document) {
	if s.search == nil {
		return
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:        item.ID,
		Title:     item.Title,
		Text:      item.Text,
		UpdatedBy: item.UpdatedBy,
		UpdatedAt: item.UpdatedAt.Unix(),
	})
}

func (s *Service) History(ctx context.Context, documentID string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.git.History(documentID, limit)
}

func (s *Service) GetRevision(ctx context.Context, documentID, hash string) (gitrepo.Content, gitrepo.Revision, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return gitrepo.Content{}, gitrepo.Revision{}, err
	}
	content, rev, err := s.git.GetRevision(documentID, hash)
	if err != nil {
		return gitrepo.Content{}, gitrepo.Revision{}, notFound("Revision")
	}
	return content, rev, nil
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) ExportDocument(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}

// GetDocumentInfo and GetDocumentHTML feed the exporter.
func (s *Service) GetDocumentInfo(ctx context.Context, documentID string) (export.DocumentInfo, error) {
	item, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:        item.ID,
		Title:     item.Title,
		UpdatedBy: item.UpdatedBy,
		UpdatedAt: item.UpdatedAt,
		Version:   item.Version,
	}, nil
}

func (s *Service) GetDocumentHTML(ctx context.Context, documentID, revision string) (string, error) {
	if revision == "" {
		item, err := s.GetDocument(ctx, documentID)
		if err != nil {
			return "", err
		}
		return item.HTML, nil
	}
	content, _, err := s.git.GetRevision(documentID, revision)
	if err != nil {
		return "", err
	}
	return content.HTML, nil
}

func (s *Service) UploadImage(ctx context.Context, r io.Reader, uploadedBy string) (store.Asset, error) {
	if s.assets == nil {
		return store.Asset{}, errUploadsDisabled
	}
	asset, err := s.assets.UploadImage(ctx, r, uploadedBy)
	switch {
	case errors.Is(err, assets.ErrTooLarge):
		return store.Asset{}, domainError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error(), map[string]any{"maxBytes": s.assets.MaxBytes()})
	case errors.Is(err, assets.ErrUnsupportedType), errors.Is(err, assets.ErrEmptyUpload):
		return store.Asset{}, validationError(err.Error())
	}
	return asset, err
}

// UploadLimit is the largest accepted image in bytes.
func (s *Service) UploadLimit() int64 {
	if s.assets == nil {
		return 0
	}
	return s.assets.MaxBytes()
}

func plainText(node *doc.Node) string {
	return strings.TrimSpace(node.TextBetween(0, node.ContentSize(), "\n"))
}
