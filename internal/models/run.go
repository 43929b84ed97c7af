package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run is one structured-text generation, kept for the history view.
type Run struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ClientID      string          `json:"client_id" db:"client_id"`
	DocumentCount int             `json:"document_count" db:"document_count"`
	Warnings      json.RawMessage `json:"warnings" db:"warnings"`
	Methods       json.RawMessage `json:"methods" db:"methods"`
	TextChars     int             `json:"text_chars" db:"text_chars"`
	Source        string          `json:"source" db:"source"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

const (
	RunSourceSync  = "sync"
	RunSourceBatch = "batch"
	RunSourceUI    = "ui"
	RunSourceCLI   = "cli"
)

// Batch lifecycle states.
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusDone       = "done"
	BatchStatusFailed     = "failed"
)
