package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/pdfprecheck/internal/batch"
	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/cache"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
	"github.com/nikhilbhutani/pdfprecheck/internal/queue"
	"github.com/nikhilbhutani/pdfprecheck/internal/storage"
	"github.com/nikhilbhutani/pdfprecheck/internal/webhook"
)

type memKV map[string][]byte

func (m memKV) Get(_ context.Context, key string, dest interface{}) error {
	b, ok := m[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (m memKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m[key] = b
	return nil
}

type fakeProcessor struct {
	got []precheck.Upload
	err error
}

func (f *fakeProcessor) Process(_ context.Context, source string, uploads []precheck.Upload) (*bundle.Bundle, error) {
	f.got = uploads
	if f.err != nil {
		return nil, f.err
	}
	return &bundle.Bundle{ClientID: "SC", Text: "CLIENT_ID: SC\n"}, nil
}

type notification struct {
	target, event string
	payload       outcome
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, target, event string, payload interface{}) error {
	n.sent = append(n.sent, notification{target: target, event: event, payload: payload.(outcome)})
	return nil
}

type fixture struct {
	worker   *PrecheckWorker
	proc     *fakeProcessor
	batches  *batch.Store
	store    *storage.LocalStorage
	notifier *fakeNotifier
	callback string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	proc := &fakeProcessor{}
	batches := batch.NewStore(memKV{}, time.Hour)
	store := storage.NewLocalStorage(t.TempDir())
	notifier := &fakeNotifier{}
	return &fixture{
		worker:   NewPrecheckWorker(proc, batches, store, "precheck", notifier),
		proc:     proc,
		batches:  batches,
		store:    store,
		notifier: notifier,
	}
}

func (f *fixture) seed(t *testing.T, id string, names ...string) {
	t.Helper()
	var files []batch.File
	for i, n := range names {
		p := storage.BatchObjectPath(id, i, n)
		if err := f.store.Upload(context.Background(), "precheck", p, strings.NewReader("%PDF "+n), "application/pdf"); err != nil {
			t.Fatalf("seed upload: %v", err)
		}
		files = append(files, batch.File{Index: i, Filename: n, Path: p})
	}
	if _, err := f.batches.Create(context.Background(), id, files, f.callback); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
}

func task(t *testing.T, id string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(queue.PrecheckProcessPayload{BatchID: id})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return asynq.NewTask(queue.TypePrecheckProcess, data)
}

func TestProcessTask_Success(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "b1", "SC_payslip_2025-03.pdf", "SC_statement_a_b.pdf")

	if err := f.worker.ProcessTask(context.Background(), task(t, "b1")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	if len(f.proc.got) != 2 || f.proc.got[0].Filename != "SC_payslip_2025-03.pdf" {
		t.Fatalf("processor got %+v", f.proc.got)
	}
	if string(f.proc.got[1].Data) != "%PDF SC_statement_a_b.pdf" {
		t.Fatalf("unexpected data %q", f.proc.got[1].Data)
	}

	b, err := f.batches.Get(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Status != models.BatchStatusDone || b.Result == nil {
		t.Fatalf("unexpected batch %+v", b)
	}
	if _, err := f.store.Download(context.Background(), "precheck", b.Files[0].Path); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("stored file not cleaned up: %v", err)
	}
}

func TestProcessTask_AlreadyDone(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "b2", "a.pdf")
	b, _ := f.batches.Get(context.Background(), "b2")
	f.batches.MarkDone(context.Background(), b, &bundle.Bundle{})

	if err := f.worker.ProcessTask(context.Background(), task(t, "b2")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if f.proc.got != nil {
		t.Fatalf("done batch was processed again")
	}
}

func TestProcessTask_UnknownBatchSkipsRetry(t *testing.T) {
	f := newFixture(t)
	err := f.worker.ProcessTask(context.Background(), task(t, "missing"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestProcessTask_BadPayloadSkipsRetry(t *testing.T) {
	f := newFixture(t)
	err := f.worker.ProcessTask(context.Background(), asynq.NewTask(queue.TypePrecheckProcess, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestProcessTask_MissingFileMarksFailed(t *testing.T) {
	f := newFixture(t)
	if _, err := f.batches.Create(context.Background(), "b3", []batch.File{{Filename: "gone.pdf", Path: "batches/b3/000_gone.pdf"}}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.worker.ProcessTask(context.Background(), task(t, "b3")); err == nil {
		t.Fatalf("expected error")
	}
	b, _ := f.batches.Get(context.Background(), "b3")
	if b.Status != models.BatchStatusFailed || !strings.Contains(b.Error, "gone.pdf") {
		t.Fatalf("unexpected batch %+v", b)
	}
}

func TestProcessTask_InvalidInputSkipsRetry(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "b4", "photo.jpg")
	f.proc.err = precheck.ErrNotPDF

	err := f.worker.ProcessTask(context.Background(), task(t, "b4"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
	b, _ := f.batches.Get(context.Background(), "b4")
	if b.Status != models.BatchStatusFailed {
		t.Fatalf("Status = %q", b.Status)
	}
}

func TestProcessTask_FinalFailureRemovesFiles(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "b8", "SC_payslip_2025-03.pdf", "photo.jpg")
	f.proc.err = errors.New("extractor crashed")

	if err := f.worker.ProcessTask(context.Background(), task(t, "b8")); err == nil {
		t.Fatalf("expected error")
	}
	b, _ := f.batches.Get(context.Background(), "b8")
	if b.Status != models.BatchStatusFailed {
		t.Fatalf("Status = %q", b.Status)
	}
	for _, file := range b.Files {
		if _, err := f.store.Download(context.Background(), "precheck", file.Path); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("%s not removed after final failure: %v", file.Path, err)
		}
	}
}

func TestProcessTask_CallbackOnDone(t *testing.T) {
	f := newFixture(t)
	f.callback = "https://example.com/hook"
	f.seed(t, "b5", "SC_payslip_2025-03.pdf")

	if err := f.worker.ProcessTask(context.Background(), task(t, "b5")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	want := []notification{{
		target:  "https://example.com/hook",
		event:   webhook.EventBatchDone,
		payload: outcome{BatchID: "b5", Status: models.BatchStatusDone, ClientID: "SC"},
	}}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != want[0] {
		t.Fatalf("sent = %+v, want %+v", f.notifier.sent, want)
	}
}

func TestProcessTask_CallbackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.callback = "https://example.com/hook"
	f.seed(t, "b6", "photo.jpg")
	f.proc.err = precheck.ErrNotPDF

	f.worker.ProcessTask(context.Background(), task(t, "b6"))

	if len(f.notifier.sent) != 1 {
		t.Fatalf("sent = %+v", f.notifier.sent)
	}
	got := f.notifier.sent[0]
	if got.event != webhook.EventBatchFailed || got.payload.Status != models.BatchStatusFailed || got.payload.Error == "" {
		t.Fatalf("unexpected notification %+v", got)
	}
}

func TestProcessTask_NoCallbackNoNotification(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "b7", "SC_payslip_2025-03.pdf")

	if err := f.worker.ProcessTask(context.Background(), task(t, "b7")); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("unexpected notifications %+v", f.notifier.sent)
	}
}
