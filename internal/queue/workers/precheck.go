package workers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfprecheck/internal/batch"
	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/webhook"
)

// Processor is the part of precheck.Service the worker drives.
type Processor interface {
	Process(ctx context.Context, source string, uploads []precheck.Upload) (*bundle.Bundle, error)
}

// Notifier delivers the batch outcome to the callback URL given at upload.
type Notifier interface {
	Notify(ctx context.Context, target, event string, payload interface{}) error
}

type PrecheckWorker struct {
	svc     Processor
	batches *batch.Store
	storage storage.Storage
	bucket  string
	notify  Notifier
}

// NewPrecheckWorker builds the batch handler. notify may be nil.
func NewPrecheckWorker(svc Processor, batches *batch.Store, store storage.Storage, bucket string, notify Notifier) *PrecheckWorker {
	return &PrecheckWorker{
		svc:     svc,
		batches: batches,
		storage: store,
		bucket:  bucket,
		notify:  notify,
	}
}

type outcome struct {
	BatchID  string `json:"batch_id"`
	Status   string `json:"status"`
	ClientID string `json:"client_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (w *PrecheckWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := queue.ParsePrecheckPayload(t.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	b, err := w.batches.Get(ctx, payload.BatchID)
	if errors.Is(err, batch.ErrNotFound) {
		// expired or never created; retrying cannot help
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if b.Status == models.BatchStatusDone {
		return nil
	}

	slog.Info("processing batch", "batch_id", b.ID, "files", len(b.Files))

	if err := w.batches.MarkProcessing(ctx, b); err != nil {
		return fmt.Errorf("update status to processing: %w", err)
	}

	uploads, err := w.download(ctx, b.Files)
	if err != nil {
		w.fail(ctx, b, err, lastAttempt(ctx))
		return fmt.Errorf("download files: %w", err)
	}

	result, err := w.svc.Process(ctx, models.RunSourceBatch, uploads)
	if err != nil {
		if errors.Is(err, precheck.ErrNoFiles) || errors.Is(err, precheck.ErrNotPDF) {
			w.fail(ctx, b, err, true)
			return fmt.Errorf("process batch: %w: %w", err, asynq.SkipRetry)
		}
		w.fail(ctx, b, err, lastAttempt(ctx))
		return fmt.Errorf("process batch: %w", err)
	}

	if err := w.batches.MarkDone(ctx, b, result); err != nil {
		return fmt.Errorf("update status to done: %w", err)
	}

	w.removeFiles(ctx, b)

	slog.Info("batch processed", "batch_id", b.ID, "client_id", result.ClientID)
	w.deliver(ctx, b, webhook.EventBatchDone, outcome{BatchID: b.ID, Status: b.Status, ClientID: result.ClientID})
	return nil
}

func (w *PrecheckWorker) download(ctx context.Context, files []batch.File) ([]precheck.Upload, error) {
	uploads := make([]precheck.Upload, 0, len(files))
	for _, f := range files {
		rc, err := w.storage.Download(ctx, w.bucket, f.Path)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", f.Filename, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Filename, err)
		}
		uploads = append(uploads, precheck.Upload{Filename: f.Filename, Data: data})
	}
	return uploads, nil
}

// fail records the error. Files are kept for retries; the last attempt
// removes them and is the only one the callback hears about.
func (w *PrecheckWorker) fail(ctx context.Context, b *batch.Batch, cause error, final bool) {
	if err := w.batches.MarkFailed(ctx, b, cause); err != nil {
		slog.Error("update status to failed", "batch_id", b.ID, "error", err)
	}
	if final {
		w.removeFiles(ctx, b)
		w.deliver(ctx, b, webhook.EventBatchFailed, outcome{BatchID: b.ID, Status: b.Status, Error: b.Error})
	}
}

func (w *PrecheckWorker) removeFiles(ctx context.Context, b *batch.Batch) {
	if err := storage.DeleteAll(context.WithoutCancel(ctx), w.storage, w.bucket, batch.Paths(b.Files)); err != nil {
		slog.Warn("delete batch files", "batch_id", b.ID, "error", err)
	}
}

func (w *PrecheckWorker) deliver(ctx context.Context, b *batch.Batch, event string, payload outcome) {
	if w.notify == nil || b.Callback == "" {
		return
	}
	if err := w.notify.Notify(ctx, b.Callback, event, payload); err != nil {
		slog.Warn("batch callback failed", "batch_id", b.ID, "event", event, "error", err)
	}
}

// lastAttempt reports whether asynq will not retry the running task. Outside
// a task context every attempt is the last.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
