//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs libtesseract in-process. A gosseract client is not safe for
// concurrent use, so calls are serialized.
type Gosseract struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
}

func newGosseract(language string) (Engine, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("gosseract language %s: %w", language, err)
	}
	return &Gosseract{client: client, language: language}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("gosseract set image: %w", err)
	}
	text, err := g.client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract OCR: %w", err)
	}
	return text, nil
}

func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Close()
}
