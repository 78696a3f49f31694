package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a save is based on a stale version.
	ErrVersionConflict = errors.New("document was changed by someone else")
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, version, updated_by, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]DocumentSummary, 0)
	for rows.Next() {
		var item DocumentSummary
		if err := rows.Scan(&item.ID, &item.Title, &item.Version, &item.UpdatedBy, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, html, body_text, version, created_by, updated_by, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.HTML, &item.Text, &item.Version, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) (Document, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, title, html, body_text, version, created_by, updated_by)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		RETURNING version, created_at, updated_at
	`, item.ID, item.Title, item.HTML, item.Text, item.CreatedBy).Scan(&item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	item.UpdatedBy = item.CreatedBy
	return item, nil
}

// SaveDocumentHTML stores html and its plain text as the next version of
// the document. When baseVersion is positive the save only succeeds if it
// is still current.
func (s *PostgresStore) SaveDocumentHTML(ctx context.Context, documentID, html, text, updatedBy string, baseVersion int) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		SET html=$2, body_text=$3, updated_by=$4, version=version+1, updated_at=NOW()
		WHERE id=$1 AND ($5 <= 0 OR version=$5)
		RETURNING id, title, html, body_text, version, created_by, updated_by, created_at, updated_at
	`, documentID, html, text, updatedBy, baseVersion).Scan(&item.ID, &item.Title, &item.HTML, &item.Text, &item.Version, &item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetDocument(ctx, documentID); getErr != nil {
			return Document{}, getErr
		}
		return Document{}, ErrVersionConflict
	}
	if err != nil {
		return Document{}, fmt.Errorf("save document: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertAsset(ctx context.Context, asset Asset) (Asset, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO assets (id, object_key, url, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, asset.ID, asset.ObjectKey, asset.URL, asset.ContentType, asset.Size, asset.UploadedBy).Scan(&asset.CreatedAt)
	if err != nil {
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
