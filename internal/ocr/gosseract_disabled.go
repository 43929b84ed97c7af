//go:build !gosseract

package ocr

import "fmt"

func newGosseract(string) (Engine, error) {
	return nil, fmt.Errorf("gosseract engine requires the gosseract build tag: %w", ErrOCRUnavailable)
}
