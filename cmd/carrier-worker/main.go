package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkorhonen/carrier/internal/config"
	"github.com/jkorhonen/carrier/internal/directory"
	"github.com/jkorhonen/carrier/internal/dispatch"
	"github.com/jkorhonen/carrier/internal/logger"
	"github.com/jkorhonen/carrier/internal/queue"
	"github.com/jkorhonen/carrier/internal/storage"
	"github.com/jkorhonen/carrier/internal/transport"
	"github.com/jkorhonen/carrier/internal/worker"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(cfg.Logging)
	log.Info().Msg("starting dispatch worker")

	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := storage.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("database ready")

	httpClient := transport.NewHTTPClient(30 * time.Second)
	registry, err := transport.NewRegistry(cfg.Transports, cfg.Languages, httpClient, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build transport registry")
	}

	dir := directory.NewClient(cfg.Directory, log)
	orchestrator := dispatch.NewOrchestrator(store, dir, registry, log)

	handler := worker.NewHandler(orchestrator, log)
	_, dequeuer, err := queue.NewQueue(cfg.Queue, handler, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up trigger queue")
	}
	if err := dequeuer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start trigger consumers")
	}

	sweeper := worker.NewSweeper(orchestrator, cfg.Worker, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down dispatch worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sweeper.Stop()
	if err := dequeuer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("trigger consumer shutdown error")
	}

	log.Info().Msg("dispatch worker stopped")
}
