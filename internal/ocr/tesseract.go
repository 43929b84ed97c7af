package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract command line tool, feeding the image on stdin.
type Tesseract struct {
	path     string
	language string
}

func NewTesseract(path, language string) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	if resolved, err := exec.LookPath(path); err == nil {
		path = resolved
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{path: path, language: language}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) IsAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, t.path, "--version")
	return cmd.Run() == nil
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.path, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(image)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return string(output), nil
}
