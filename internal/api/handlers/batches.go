package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/pdfprecheck/internal/batch"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/webhook"
)

type Enqueuer interface {
	EnqueuePrecheck(payload queue.PrecheckProcessPayload) error
}

type BatchStore interface {
	Create(ctx context.Context, id string, files []batch.File, callback string) (*batch.Batch, error)
	Get(ctx context.Context, id string) (*batch.Batch, error)
	MarkFailed(ctx context.Context, b *batch.Batch, cause error) error
}

type BatchHandler struct {
	batches  BatchStore
	storage  storage.Storage
	bucket   string
	queue    Enqueuer
	maxBytes int64
}

func NewBatchHandler(batches BatchStore, store storage.Storage, bucket string, q Enqueuer, maxBytes int64) *BatchHandler {
	return &BatchHandler{
		batches:  batches,
		storage:  store,
		bucket:   bucket,
		queue:    q,
		maxBytes: maxBytes,
	}
}

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	uploads, err := readUploads(w, r, h.maxBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := precheck.Validate(uploads); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	callback := r.PostFormValue("callback_url")
	if callback != "" {
		if err := webhook.ValidateURL(callback); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx := r.Context()
	id := uuid.NewString()

	files := make([]batch.File, 0, len(uploads))
	for i, u := range uploads {
		path := storage.BatchObjectPath(id, i, u.Filename)
		if err := h.storage.Upload(ctx, h.bucket, path, bytes.NewReader(u.Data), "application/pdf"); err != nil {
			h.discard(ctx, id, files)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		files = append(files, batch.File{Index: i, Filename: u.Filename, Path: path, Size: int64(len(u.Data))})
	}

	b, err := h.batches.Create(ctx, id, files, callback)
	if err != nil {
		h.discard(ctx, id, files)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.queue.EnqueuePrecheck(queue.PrecheckProcessPayload{BatchID: id}); err != nil {
		if ferr := h.batches.MarkFailed(ctx, b, err); ferr != nil {
			slog.Error("update status to failed", "batch_id", id, "error", ferr)
		}
		h.discard(ctx, id, files)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	slog.Info("batch queued", "batch_id", id, "files", len(files))
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id": id,
		"status":   b.Status,
		"files":    len(files),
	})
}

// discard removes the stored uploads of a batch that will never be processed.
func (h *BatchHandler) discard(ctx context.Context, id string, files []batch.File) {
	if err := storage.DeleteAll(context.WithoutCancel(ctx), h.storage, h.bucket, batch.Paths(files)); err != nil {
		slog.Warn("delete batch files", "batch_id", id, "error", err)
	}
}

func (h *BatchHandler) load(w http.ResponseWriter, r *http.Request) (*batch.Batch, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch ID")
		return nil, false
	}

	b, err := h.batches.Get(r.Context(), id)
	if errors.Is(err, batch.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return b, true
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BatchHandler) Download(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, r)
	if !ok {
		return
	}
	if b.Status != models.BatchStatusDone || b.Result == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "batch not ready", "status": b.Status})
		return
	}
	writeText(w, b.Result.Filename, b.Result.Text)
}
