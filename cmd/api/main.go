package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orbit/api/internal/ai"
	"orbit/api/internal/app"
	"orbit/api/internal/archive"
	"orbit/api/internal/config"
	"orbit/api/internal/export"
	"orbit/api/internal/graph"
	"orbit/api/internal/projection"
	"orbit/api/internal/search"
	"orbit/api/internal/session"
	"orbit/api/internal/store"
	"orbit/api/internal/websearch"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	watcher := store.NewWatcher(cfg.DatabaseURL)

	var redisStore *session.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err = session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		log.Printf("Using Redis for session storage")
	} else {
		log.Printf("Redis not configured, sessions are stateless")
	}
	sessions := session.NewService(redisStore, cfg.SessionSecret, cfg.SessionTTL)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)

	archiveService := archive.New(cfg.ArchiveDir)
	if err := archiveService.Ensure(); err != nil {
		log.Printf("WARNING: corpus archive unavailable: %v", err)
		archiveService = nil
	}

	// Both clients are always constructed; credentials may arrive later
	// through the settings endpoint.
	aiClient := ai.NewClient(cfg.GeminiAPIKey, ai.WithModel(cfg.GeminiModel))
	if cfg.GeminiAPIKey == "" {
		log.Printf("GEMINI_API_KEY not set, capture and chat are disabled until settings provide one")
	}
	webSearch := websearch.NewClient(cfg.SearchAPIKey, cfg.SearchEngineID)

	liveGraph := graph.New()
	controller := projection.NewController(dataStore, sessions, watcher, liveGraph)

	exporter := export.NewService(func(id string) string {
		if rec, ok := controller.RecordByID(id); ok {
			return rec.Word
		}
		return id
	})

	service := app.New(cfg, dataStore, controller, liveGraph, sessions, aiClient, webSearch, searchService, archiveService, exporter, redisStore)
	service.RestoreSettings(ctx)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)

	go controller.Run(ctx)
	go reindexCorpus(ctx, dataStore, searchService)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// WriteTimeout stays zero: the event stream holds its response open
		// for the lifetime of the client.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Orbit API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// reindexCorpus rebuilds the search index from the store at boot so the
// index survives a wiped search backend.
func reindexCorpus(ctx context.Context, dataStore *store.PostgresStore, searchService *search.Service) {
	records, err := dataStore.ListRecords(ctx)
	if err != nil {
		log.Printf("WARNING: search reindex skipped: %v", err)
		return
	}
	docs := make([]search.RecordDoc, 0, len(records))
	for _, rec := range records {
		docs = append(docs, search.RecordDoc{
			ID:       rec.ID,
			Word:     rec.Word,
			Category: rec.Category,
			Summary:  rec.Summary,
			Analogy:  rec.Analogy,
		})
	}
	searchService.IndexRecords(docs)
}
