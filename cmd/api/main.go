package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"netlabs/api/internal/app"
	"netlabs/api/internal/assets"
	"netlabs/api/internal/config"
	"netlabs/api/internal/gitrepo"
	"netlabs/api/internal/search"
	"netlabs/api/internal/session"
	"netlabs/api/internal/store"
)

func main() {
	rollback := flag.Int("migrate-down", 0, "revert the newest N migrations and exit (-1 for all)")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	openCtx, cancelOpen := context.WithTimeout(ctx, time.Minute)
	db, err := store.Open(openCtx, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if *rollback != 0 {
		if err := store.RollbackMigrations(ctx, db, cfg.MigrationsDir, max(*rollback, 0)); err != nil {
			log.Fatalf("rollback failed: %v", err)
		}
		return
	}
	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	deps := app.Deps{
		Store: dataStore,
		Git:   gitrepo.New(cfg.ReposDir),
	}

	var index search.Indexer
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		index = meiliClient
	}
	searchService := search.NewService(index, search.NewPgFTS(db))
	deps.Search = searchService
	go searchService.ReindexAllFromPG(ctx)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		drafts, err := session.NewRedisStore(cfg.RedisURL, cfg.DraftTTL)
		if err != nil {
			log.Printf("WARNING: drafts disabled, redis unavailable: %v", err)
		} else {
			defer drafts.Close()
			deps.Drafts = drafts
		}
	}

	uploads, err := assets.NewMinio(assets.Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
		PublicURL: cfg.S3PublicURL,
		MaxBytes:  cfg.MaxUploadBytes,
	}, dataStore)
	switch {
	case errors.Is(err, assets.ErrDisabled):
		log.Printf("image uploads disabled: S3_ENDPOINT is not set")
	case err != nil:
		log.Fatalf("object storage setup failed: %v", err)
	default:
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := uploads.EnsureBucket(bucketCtx); err != nil {
			log.Printf("WARNING: image bucket not ready: %v", err)
		}
		cancel()
		deps.Assets = uploads
	}

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go service.RunReaper(reaperCtx, time.Minute)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ExportTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("NetLabs API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	searchService.Wait()
}
