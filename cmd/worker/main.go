package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/pdfprecheck/internal/batch"
	"github.com/nikhilbhutani/pdfprecheck/internal/cache"
	"github.com/nikhilbhutani/pdfprecheck/internal/config"
	"github.com/nikhilbhutani/pdfprecheck/internal/database"
	"github.com/nikhilbhutani/pdfprecheck/internal/document"
	"github.com/nikhilbhutani/pdfprecheck/internal/ocr"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue/workers"
	"github.com/nikhilbhutani/pdfprecheck/internal/runs"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("config rejected", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, running without run history", "error", err)
	} else {
		defer db.Close()
	}

	rdb := cache.NewClient(cfg.Redis)
	defer rdb.Close()
	c := cache.NewCache(rdb, "pdfprecheck")

	store, err := storage.New(cfg.Storage)
	if err != nil {
		slog.Error("failed to create storage", "error", err)
		os.Exit(1)
	}

	var pdfOCR document.PDFRecognizer
	if recognizer, err := ocr.NewFromConfig(cfg.OCR); err != nil {
		slog.Warn("ocr disabled", "engine", cfg.OCR.Engine, "error", err)
	} else {
		pdfOCR = recognizer
	}

	extractor := document.NewTextExtractor(pdfOCR,
		document.WithMinTextChars(cfg.Extract.MinTextChars),
		document.WithCache(c, cfg.Extract.CacheTTL),
	)
	svc := precheck.NewService(extractor, runs.NewStore(db), cfg.Extract.Workers)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	notifier := webhook.NewNotifier(cfg.Webhook.Secret, cfg.Webhook.Timeout)
	precheckWorker := workers.NewPrecheckWorker(svc, batch.NewStore(c, cfg.Worker.BatchTTL), store, cfg.Storage.Bucket, notifier)

	registry.Register(queue.TypePrecheckProcess, asynq.HandlerFunc(precheckWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
