package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/pdfprecheck/internal/api"
	"github.com/nikhilbhutani/pdfprecheck/internal/api/handlers"
	"github.com/nikhilbhutani/pdfprecheck/internal/batch"
	"github.com/nikhilbhutani/pdfprecheck/internal/cache"
	"github.com/nikhilbhutani/pdfprecheck/internal/config"
	"github.com/nikhilbhutani/pdfprecheck/internal/database"
	"github.com/nikhilbhutani/pdfprecheck/internal/document"
	"github.com/nikhilbhutani/pdfprecheck/internal/ocr"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue"
	"github.com/nikhilbhutani/pdfprecheck/internal/runs"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/web"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}

	// Database connection (optional, only used for the run history)
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, running without run history", "error", err)
	} else {
		defer db.Close()
		checks["database"] = db

		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			slog.Warn("migrations failed", "error", err)
		}
	}

	// Redis connection (optional, backs the extraction cache and batches)
	rdb := cache.NewClient(cfg.Redis)
	defer rdb.Close()

	deps := api.Deps{Runs: runs.NewStore(db)}

	opts := []document.Option{document.WithMinTextChars(cfg.Extract.MinTextChars)}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and batches", "error", err)
	} else {
		c := cache.NewCache(rdb, "pdfprecheck")
		checks["redis"] = c
		opts = append(opts, document.WithCache(c, cfg.Extract.CacheTTL))

		store, err := storage.New(cfg.Storage)
		if err != nil {
			slog.Error("failed to create storage", "error", err)
			os.Exit(1)
		}
		q := queue.NewClient(cfg.Redis, cfg.Worker.BatchTTL)
		defer q.Close()

		deps.Batches = batch.NewStore(c, cfg.Worker.BatchTTL)
		deps.Queue = q
		deps.Storage = store
	}

	recognizer, err := ocr.NewFromConfig(cfg.OCR)
	if err != nil {
		slog.Warn("ocr disabled", "engine", cfg.OCR.Engine, "error", err)
	}
	checks["ocr"] = ocrCheck(cfg.OCR)

	var pdfOCR document.PDFRecognizer
	if recognizer != nil {
		pdfOCR = recognizer
	}
	extractor := document.NewTextExtractor(pdfOCR, opts...)
	deps.Precheck = precheck.NewService(extractor, deps.Runs, cfg.Extract.Workers)

	deps.Pages, err = web.NewRenderer()
	if err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	deps.Checks = checks

	router := api.NewRouter(cfg, deps)
	handler := router.Setup(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "headless", cfg.Server.Headless)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	if !cfg.Server.Headless {
		url := fmt.Sprintf("http://localhost:%d/", cfg.Server.Port)
		if err := openBrowser(url); err != nil {
			slog.Warn("could not open browser", "url", url, "error", err)
		}
	}

	<-ctx.Done()

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// ocrCheck reports whether the OCR command line tools can be executed.
func ocrCheck(cfg config.OCRConfig) handlers.PingFunc {
	poppler := ocr.NewPoppler(cfg.PdftoppmPath, cfg.DPI)
	tess := ocr.NewTesseract(cfg.TesseractPath, cfg.Language)
	return func(ctx context.Context) error {
		if !poppler.IsAvailable(ctx) {
			return fmt.Errorf("pdftoppm: %w", ocr.ErrOCRUnavailable)
		}
		if cfg.Engine == "tesseract" && !tess.IsAvailable(ctx) {
			return fmt.Errorf("tesseract: %w", ocr.ErrOCRUnavailable)
		}
		return nil
	}
}
