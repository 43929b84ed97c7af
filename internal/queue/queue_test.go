package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
)

func TestNewPrecheckTask(t *testing.T) {
	task, err := NewPrecheckTask(PrecheckProcessPayload{BatchID: "6f1c2a4e"})
	if err != nil {
		t.Fatalf("NewPrecheckTask: %v", err)
	}
	if task.Type() != TypePrecheckProcess {
		t.Fatalf("Type = %q", task.Type())
	}
	var p PrecheckProcessPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil || p.BatchID != "6f1c2a4e" {
		t.Fatalf("payload = %s (%v)", task.Payload(), err)
	}

	if _, err := NewPrecheckTask(PrecheckProcessPayload{}); err == nil {
		t.Fatalf("expected error for empty batch id")
	}
}

func TestRegistry_RoutesThroughMiddleware(t *testing.T) {
	r := NewHandlersRegistry()

	var got []string
	r.Register(TypePrecheckProcess, asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		got = append(got, string(task.Payload()))
		return nil
	}))

	if err := r.Mux().ProcessTask(context.Background(), asynq.NewTask(TypePrecheckProcess, []byte(`{"batch_id":"b1"}`))); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(got) != 1 || got[0] != `{"batch_id":"b1"}` {
		t.Fatalf("handler got %v", got)
	}

	wantErr := errors.New("boom")
	r.Register("precheck:fail", asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return wantErr }))
	if err := r.Mux().ProcessTask(context.Background(), asynq.NewTask("precheck:fail", nil)); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want handler error passed through", err)
	}

	if err := r.Mux().ProcessTask(context.Background(), asynq.NewTask("unknown:type", nil)); err == nil {
		t.Fatalf("expected error for unregistered task type")
	}
}

func TestParsePrecheckPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantID  string
		wantErr bool
	}{
		{"ok", `{"batch_id":"b1"}`, "b1", false},
		{"empty id", `{"batch_id":""}`, "", true},
		{"no id", `{}`, "", true},
		{"garbage", `{`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePrecheckPayload([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if p.BatchID != tt.wantID {
				t.Fatalf("BatchID = %q, want %q", p.BatchID, tt.wantID)
			}
		})
	}
}
