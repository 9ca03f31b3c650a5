package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/dococr/dococr/internal/async"
	"github.com/dococr/dococr/internal/common"
	"github.com/dococr/dococr/internal/ingest"
	"github.com/dococr/dococr/internal/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.Paths.Ensure(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directory roots")
	}
	if err := logger.Setup(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   filepath.Join(cfg.Paths.LogDir, "dococr.log"),
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spool, err := async.NewSpool(cfg.Paths.SpoolDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open spool")
	}

	scanner := ingest.NewScanner(ingest.ScanConfig{
		ExcludeDirs:   cfg.Ingest.ExcludeDirs,
		FollowReparse: cfg.Ingest.FollowReparse,
	})
	ready := ingest.NewReadyChecker(cfg.Ingest.FileWaitRetries, cfg.Ingest.FileWaitStep)
	registry := ingest.NewRegistry(ingest.DefaultRegistryCapacity)
	pipe := ingest.NewPipeline(cfg.Paths.InDir, scanner, ready, registry, spool)

	// Pick up the backlog before going live.
	pipe.InitialScan(ctx)

	watcher, err := ingest.NewWatcher(pipe, scanner, cfg.Ingest.DirSettle)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create watcher")
	}
	if err := watcher.Start(ctx, cfg.Paths.InDir); err != nil {
		log.Fatal().Err(err).Msg("failed to start watcher")
	}
	log.Info().Str("root", cfg.Paths.InDir).
		Bool("follow_reparse", cfg.Ingest.FollowReparse).Msg("watching for documents")

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	watcher.Wait()
	log.Info().Msg("watcher stopped")
}
