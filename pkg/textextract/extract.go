package textextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

type ExtractedText struct {
	Content       string
	Pages         int
	PagesWithText int
}

// PDFMagic is the header every PDF file starts with.
var PDFMagic = []byte("%PDF")

// LooksLikePDF reports whether data begins with the PDF header.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, PDFMagic)
}

// ExtractPDF reads the text layer of a PDF. Pages with no visible text are
// skipped; the remaining pages are trimmed and joined with a newline.
func ExtractPDF(data io.ReaderAt, size int64) (result *ExtractedText, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("read PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var chunks []string
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, text)
	}

	return &ExtractedText{
		Content:       strings.Join(chunks, "\n"),
		Pages:         numPages,
		PagesWithText: len(chunks),
	}, nil
}

// ExtractPDFBytes is ExtractPDF over an in-memory file.
func ExtractPDFBytes(data []byte) (*ExtractedText, error) {
	return ExtractPDF(bytes.NewReader(data), int64(len(data)))
}
