package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/cache"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
)

var ErrNotFound = errors.New("batch not found")

type File struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// Paths lists the storage path of every file.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

type Batch struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Files     []File         `json:"files"`
	Result    *bundle.Bundle `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Callback  string         `json:"callback_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// KV is the subset of the Redis cache the store needs.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Store struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl, now: time.Now}
}

func key(id string) string { return "batch:" + id }

// Create registers a pending batch for files already written to storage.
// callback may be empty.
func (s *Store) Create(ctx context.Context, id string, files []File, callback string) (*Batch, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	b := &Batch{
		ID:        id,
		Status:    models.BatchStatusPending,
		Files:     files,
		Callback:  callback,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.kv.Set(ctx, key(id), b, s.ttl); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", id, err)
	}
	return b, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	err := s.kv.Get(ctx, key(id), &b)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) MarkProcessing(ctx context.Context, b *Batch) error {
	b.Status = models.BatchStatusProcessing
	b.Error = ""
	return s.save(ctx, b)
}

func (s *Store) MarkDone(ctx context.Context, b *Batch, result *bundle.Bundle) error {
	b.Status = models.BatchStatusDone
	b.Result = result
	b.Error = ""
	return s.save(ctx, b)
}

func (s *Store) MarkFailed(ctx context.Context, b *Batch, cause error) error {
	b.Status = models.BatchStatusFailed
	b.Error = cause.Error()
	return s.save(ctx, b)
}

func (s *Store) save(ctx context.Context, b *Batch) error {
	b.UpdatedAt = s.now().UTC()
	if err := s.kv.Set(ctx, key(b.ID), b, s.ttl); err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}
