// Command main runs a one-shot expiry sweep: every story past its 24h window
// is deleted, metadata and blob. Intended for cron or manual operation when
// the server's background sweep is disabled.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"snapgram/internal/blob"
	"snapgram/internal/config"
	"snapgram/internal/database"
	"snapgram/internal/repository"
	"snapgram/internal/service"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall sweep timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	blobs, err := blob.NewMinioStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}

	storyRepo := repository.NewStoryRepository(db)
	viewRepo := repository.NewStoryViewRepository(db)
	userRepo := repository.NewUserRepository(db)
	ledger := service.NewViewLedger(viewRepo, storyRepo)
	svc := service.NewStoryService(storyRepo, viewRepo, userRepo, blobs, ledger,
		cfg.StoryTTL(), int64(cfg.MaxUploadSizeMB)*1024*1024)

	swept, err := svc.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	log.Printf("Sweep complete: %d stories removed", swept)
}
