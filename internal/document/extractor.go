package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nikhilbhutani/pdfprecheck/pkg/textextract"
)

const (
	MethodTextLayer = "text_layer"
	MethodOCR       = "ocr"
	MethodNone      = "none"
)

// DefaultMinTextChars is the text-layer length a document must exceed before
// OCR is skipped.
const DefaultMinTextChars = 50

// Result is the text recovered from one PDF. Err carries a non-fatal problem
// (for example OCR failing on a scan) for display next to the document.
type Result struct {
	Text   string `json:"text"`
	Method string `json:"method"`
	Pages  int    `json:"pages"`
	Err    string `json:"error,omitempty"`
}

type TextExtractor interface {
	Extract(ctx context.Context, data []byte) Result
}

// PDFRecognizer OCRs an entire PDF.
type PDFRecognizer interface {
	RecognizePDF(ctx context.Context, pdf []byte) (string, error)
}

// ResultCache stores extraction results keyed by content hash.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Option func(*extractor)

func WithMinTextChars(n int) Option {
	return func(e *extractor) { e.minTextChars = n }
}

func WithCache(c ResultCache, ttl time.Duration) Option {
	return func(e *extractor) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

type extractor struct {
	ocr          PDFRecognizer
	minTextChars int
	cache        ResultCache
	cacheTTL     time.Duration
}

// NewTextExtractor returns an extractor that prefers the PDF text layer and
// falls back to OCR when the layer is too short. ocr may be nil.
func NewTextExtractor(ocr PDFRecognizer, opts ...Option) TextExtractor {
	e := &extractor{
		ocr:          ocr,
		minTextChars: DefaultMinTextChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *extractor) Extract(ctx context.Context, data []byte) Result {
	key := cacheKey(data)
	if e.cache != nil {
		var cached Result
		if err := e.cache.Get(ctx, key, &cached); err == nil {
			return cached
		}
	}

	res := e.extract(ctx, data)

	// failed OCR may succeed on a retry, so only clean results are cached
	if e.cache != nil && res.Err == "" {
		if err := e.cache.Set(ctx, key, res, e.cacheTTL); err != nil {
			slog.Warn("cache extraction result", "error", err)
		}
	}
	return res
}

func (e *extractor) extract(ctx context.Context, data []byte) Result {
	var textLayer string
	var pages int
	layer, err := textextract.ExtractPDFBytes(data)
	if err != nil {
		slog.Debug("text layer unavailable", "error", err)
	} else {
		textLayer = layer.Content
		pages = layer.Pages
	}

	if utf8.RuneCountInString(textLayer) > e.minTextChars {
		return Result{Text: textLayer, Method: MethodTextLayer, Pages: pages}
	}

	if e.ocr == nil {
		return fallback(textLayer, pages, "ocr not configured")
	}

	text, err := e.ocr.RecognizePDF(ctx, data)
	if err != nil {
		slog.Warn("ocr failed", "error", err)
		return fallback(textLayer, pages, err.Error())
	}

	return Result{Text: text, Method: MethodOCR, Pages: pages}
}

func fallback(textLayer string, pages int, reason string) Result {
	method := MethodNone
	if strings.TrimSpace(textLayer) != "" {
		method = MethodTextLayer
	}
	return Result{Text: textLayer, Method: method, Pages: pages, Err: reason}
}

func cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return "extract:" + hex.EncodeToString(sum[:])
}
