package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/pdfprecheck/internal/config"
)

// Recognizer OCRs a whole PDF: rasterize, then recognize pages in parallel.
type Recognizer struct {
	rasterizer Rasterizer
	engine     Engine
	workers    int
}

func NewRecognizer(r Rasterizer, e Engine, workers int) *Recognizer {
	if workers < 1 {
		workers = 1
	}
	return &Recognizer{rasterizer: r, engine: e, workers: workers}
}

// NewFromConfig wires pdftoppm and the configured engine into a Recognizer.
func NewFromConfig(cfg config.OCRConfig) (*Recognizer, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return NewRecognizer(NewPoppler(cfg.PdftoppmPath, cfg.DPI), engine, cfg.Workers), nil
}

// RecognizePDF returns the OCR text of every page joined with newlines, in
// page order. A PDF that renders no pages yields empty text. Any page failure
// fails the whole document.
func (r *Recognizer) RecognizePDF(ctx context.Context, pdf []byte) (string, error) {
	pages, err := r.rasterizer.Rasterize(ctx, pdf)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}
	if len(pages) == 0 {
		return "", nil
	}

	texts := make([]string, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, page := range pages {
		g.Go(func() error {
			text, err := r.engine.Recognize(gctx, page.Image)
			if err != nil {
				return fmt.Errorf("page %d: %w", page.Index, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("%s recognize: %w", r.engine.Name(), err)
	}

	slog.Debug("ocr complete", "engine", r.engine.Name(), "pages", len(pages))
	return strings.Join(texts, "\n"), nil
}
