package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/nikhilbhutani/pdfprecheck/internal/config"
)

var ErrNotFound = errors.New("object not found")

type Storage interface {
	Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, path string) error
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocalStorage(cfg.LocalDir), nil
	case "supabase":
		return NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// BatchObjectPath is where upload index of a batch is stored. The original
// filename is reduced to its base name.
func BatchObjectPath(batchID string, index int, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload.pdf"
	}
	return fmt.Sprintf("batches/%s/%03d_%s", batchID, index, base)
}

// DeleteAll removes every path and returns the joined errors.
func DeleteAll(ctx context.Context, s Storage, bucket string, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := s.Delete(ctx, bucket, p); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
