package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("NETLABS_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("NETLABS_TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db), ctx
}

func TestDocumentLifecyclePostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	created, err := s.InsertDocument(ctx, Document{ID: "doc_ospf", Title: "OSPF lab", HTML: "<p></p>", CreatedBy: "ana"})
	if err != nil {
		t.Fatalf("InsertDocument failed: %v", err)
	}
	if created.Version != 1 || created.UpdatedBy != "ana" {
		t.Fatalf("unexpected created document: %+v", created)
	}

	saved, err := s.SaveDocumentHTML(ctx, "doc_ospf", "<p>area 0</p>", "area 0", "ben", 1)
	if err != nil {
		t.Fatalf("SaveDocumentHTML failed: %v", err)
	}
	if saved.Version != 2 || saved.HTML != "<p>area 0</p>" || saved.UpdatedBy != "ben" {
		t.Fatalf("unexpected saved document: %+v", saved)
	}

	if _, err := s.SaveDocumentHTML(ctx, "doc_ospf", "<p>stale</p>", "stale", "ana", 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if _, err := s.SaveDocumentHTML(ctx, "doc_missing", "<p></p>", "", "ana", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := s.GetDocument(ctx, "doc_ospf")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Text != "area 0" || got.Version != 2 {
		t.Errorf("unexpected document: %+v", got)
	}

	list, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "doc_ospf" {
		t.Errorf("unexpected listing: %+v", list)
	}

	if err := s.DeleteDocument(ctx, "doc_ospf"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if err := s.DeleteDocument(ctx, "doc_ospf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestInsertAssetPostgres(t *testing.T) {
	s, ctx := openTestStore(t)
	asset, err := s.InsertAsset(ctx, Asset{
		ID:          "ast_1",
		ObjectKey:   "images/ast_1.png",
		URL:         "http://localhost:9000/lab-assets/images/ast_1.png",
		ContentType: "image/png",
		Size:        2048,
		UploadedBy:  "ana",
	})
	if err != nil {
		t.Fatalf("InsertAsset failed: %v", err)
	}
	if asset.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}
