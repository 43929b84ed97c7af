// Package cli implements the pdfprecheck command line tool.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/pdfprecheck/internal/config"
	"github.com/nikhilbhutani/pdfprecheck/internal/document"
	"github.com/nikhilbhutani/pdfprecheck/internal/ocr"
)

// ExtractorFunc builds the document extractor for a command run.
type ExtractorFunc func(cfg *config.Config) document.TextExtractor

// LocalExtractor uses the text layer and local OCR tools, without a cache.
func LocalExtractor(cfg *config.Config) document.TextExtractor {
	var pdfOCR document.PDFRecognizer
	if recognizer, err := ocr.NewFromConfig(cfg.OCR); err != nil {
		slog.Warn("ocr disabled", "engine", cfg.OCR.Engine, "error", err)
	} else {
		pdfOCR = recognizer
	}
	return document.NewTextExtractor(pdfOCR, document.WithMinTextChars(cfg.Extract.MinTextChars))
}

func NewRootCommand(newExtractor ExtractorFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "pdfprecheck",
		Short:         "Turn client PDFs into a single structured text file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildCommand(newExtractor))
	root.AddCommand(parseNameCommand())
	return root
}
