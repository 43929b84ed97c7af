package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/pdfprecheck/internal/config"
)

// ErrOCRUnavailable is returned when the configured engine cannot run on this host.
var ErrOCRUnavailable = errors.New("ocr engine unavailable")

// Engine turns a single page image into text.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Page is one rasterized PDF page. Index is 1-based.
type Page struct {
	Index int
	Image []byte
}

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]Page, error)
}

// NewEngine builds the engine named in cfg.Engine.
func NewEngine(cfg config.OCRConfig) (Engine, error) {
	switch cfg.Engine {
	case "tesseract", "":
		return NewTesseract(cfg.TesseractPath, cfg.Language), nil
	case "gosseract":
		return newGosseract(cfg.Language)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}
