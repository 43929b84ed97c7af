package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
)

type Store interface {
	Record(ctx context.Context, source string, b *bundle.Bundle) error
	List(ctx context.Context, limit, offset int) ([]models.Run, error)
}

// NewStore returns a Postgres-backed store, or a no-op store when db is nil.
func NewStore(db *pgxpool.Pool) Store {
	if db == nil {
		return NopStore{}
	}
	return &PgStore{db: db}
}

type PgStore struct {
	db *pgxpool.Pool
}

func (s *PgStore) Record(ctx context.Context, source string, b *bundle.Bundle) error {
	run, err := NewRun(source, b)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO precheck_runs (id, client_id, document_count, warnings, methods, text_chars, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ClientID, run.DocumentCount, run.Warnings, run.Methods, run.TextChars, run.Source, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *PgStore) List(ctx context.Context, limit, offset int) ([]models.Run, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, client_id, document_count, warnings, methods, text_chars, source, created_at
		 FROM precheck_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.ClientID, &r.DocumentCount, &r.Warnings, &r.Methods, &r.TextChars, &r.Source, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// NewRun summarizes a bundle: warnings verbatim, and a count of documents per
// extraction method.
func NewRun(source string, b *bundle.Bundle) (models.Run, error) {
	methods := map[string]int{}
	for _, d := range b.Documents {
		methods[d.Method]++
	}

	warnings, err := json.Marshal(b.Warnings)
	if err != nil {
		return models.Run{}, fmt.Errorf("marshal warnings: %w", err)
	}
	methodsJSON, err := json.Marshal(methods)
	if err != nil {
		return models.Run{}, fmt.Errorf("marshal methods: %w", err)
	}

	return models.Run{
		ID:            uuid.New(),
		ClientID:      b.ClientID,
		DocumentCount: len(b.Documents),
		Warnings:      warnings,
		Methods:       methodsJSON,
		TextChars:     len([]rune(b.Text)),
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

type NopStore struct{}

func (NopStore) Record(context.Context, string, *bundle.Bundle) error { return nil }

func (NopStore) List(context.Context, int, int) ([]models.Run, error) {
	return []models.Run{}, nil
}
