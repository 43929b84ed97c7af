package precheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/document"
	"github.com/nikhilbhutani/pdfprecheck/internal/naming"
	"github.com/nikhilbhutani/pdfprecheck/pkg/textextract"
)

var (
	ErrNoFiles = errors.New("no files uploaded")
	ErrNotPDF  = errors.New("not a PDF")
)

type Upload struct {
	Filename string
	Data     []byte
}

// RunRecorder persists a summary of each generated bundle.
type RunRecorder interface {
	Record(ctx context.Context, source string, b *bundle.Bundle) error
}

type Service struct {
	extractor document.TextExtractor
	runs      RunRecorder
	workers   int
}

func NewService(ex document.TextExtractor, runs RunRecorder, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{extractor: ex, runs: runs, workers: workers}
}

// Validate rejects empty input and files that are neither named nor shaped
// like a PDF.
func Validate(uploads []Upload) error {
	if len(uploads) == 0 {
		return ErrNoFiles
	}
	for _, u := range uploads {
		if !strings.HasSuffix(strings.ToLower(u.Filename), ".pdf") && !textextract.LooksLikePDF(u.Data) {
			return fmt.Errorf("%s: %w", u.Filename, ErrNotPDF)
		}
	}
	return nil
}

// Process extracts every upload and assembles the bundle. Per-document
// extraction problems are reported inside the bundle, not as errors.
func (s *Service) Process(ctx context.Context, source string, uploads []Upload) (*bundle.Bundle, error) {
	if err := Validate(uploads); err != nil {
		return nil, err
	}

	docs := make([]bundle.Document, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, u := range uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.extractor.Extract(gctx, u.Data)
			docs[i] = bundle.Document{
				Filename: u.Filename,
				Name:     naming.ParseFilename(u.Filename),
				Text:     res.Text,
				Method:   res.Method,
				Pages:    res.Pages,
				Err:      res.Err,
			}
			slog.Info("document extracted",
				"document", u.Filename,
				"method", res.Method,
				"pages", res.Pages,
				"chars", len(res.Text),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract documents: %w", err)
	}

	b := bundle.Build(docs)
	for _, w := range b.Warnings {
		slog.Warn("client id mismatch", "client_id", b.ClientID, "warning", w)
	}

	if s.runs != nil {
		if err := s.runs.Record(ctx, source, b); err != nil {
			slog.Warn("record run", "error", err)
		}
	}

	return b, nil
}
