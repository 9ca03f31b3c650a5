package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/dococr/dococr/internal/async"
	"github.com/dococr/dococr/internal/common"
	"github.com/dococr/dococr/internal/document"
	"github.com/dococr/dococr/internal/logger"
	"github.com/dococr/dococr/internal/ocr"
	"github.com/dococr/dococr/internal/output"
	"github.com/dococr/dococr/internal/pdf"
	"github.com/dococr/dococr/internal/pipeline"
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
	defer spool.Close()

	toolkit := pdf.NewToolkit(pdf.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		DPI:       cfg.OCR.DPI,
	})
	engine := ocr.NewTesseract(ocr.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		ExtraArgs:   cfg.OCR.ExtraArgs,
		TessdataDir: cfg.OCR.TessdataDir,
	})
	classifier := document.NewClassifier(toolkit, cfg.OCR.TextMinChars)
	dispatcher := pipeline.NewDispatcher(toolkit, engine, cfg.OCR.Threads)
	assembler := pipeline.NewAssembler(toolkit)
	store := output.NewStore(cfg.Paths.InDir, cfg.Paths.OutDir)
	sink := output.NewSink(cfg.Paths.ErrorDir)

	proc := pipeline.NewProcessor(classifier, dispatcher, assembler, engine, toolkit, store, sink,
		pipeline.Options{
			EmitText: cfg.Output.EmitText,
			EmitPDF:  cfg.Output.EmitPDF,
		})

	pool := async.NewPool(func(ctx context.Context, t async.Ticket) error {
		err := proc.ProcessJob(ctx, t.Job)
		spool.Finish(t)
		return err
	},
		async.WithWorkers(cfg.Job.Workers),
		async.WithJobTimeout(cfg.Job.TimeLimit),
	)

	go func() {
		for {
			t, err := spool.Next(ctx)
			if err != nil {
				return
			}
			pool.Submit(ctx, t)
		}
	}()

	log.Info().Str("spool", cfg.Paths.SpoolDir).Int("workers", cfg.Job.Workers).
		Str("lang", cfg.OCR.Lang).Msg("worker ready")

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	log.Info().Msg("worker stopped")
}
