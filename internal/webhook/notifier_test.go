package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNotify_SignsPayload(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier("s3cret", time.Second)
	payload := map[string]string{"batch_id": "b1", "status": "done"}
	if err := n.Notify(context.Background(), srv.URL, EventBatchDone, payload); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(gotBody, &decoded); err != nil || decoded["batch_id"] != "b1" {
		t.Fatalf("body = %s", gotBody)
	}
	if gotHeader.Get("X-Webhook-Event") != EventBatchDone {
		t.Fatalf("event header = %q", gotHeader.Get("X-Webhook-Event"))
	}
	if gotHeader.Get(SignatureHeader) != Sign(gotBody, "s3cret") {
		t.Fatalf("signature = %q", gotHeader.Get(SignatureHeader))
	}
	if gotHeader.Get("X-Webhook-ID") == "" {
		t.Fatalf("missing delivery id")
	}
}

func TestNotify_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Errorf("unexpected signature header")
		}
	}))
	defer srv.Close()

	if err := NewNotifier("", 0).Notify(context.Background(), srv.URL, EventBatchFailed, struct{}{}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewNotifier("x", time.Second).Notify(context.Background(), srv.URL, EventBatchDone, nil); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestSign_Keyed(t *testing.T) {
	got := Sign([]byte("{}"), "key")
	if !strings.HasPrefix(got, "sha256=") || len(got) != len("sha256=")+64 {
		t.Fatalf("Sign = %q", got)
	}
	if Sign([]byte("{}"), "key") != got || Sign([]byte("{}"), "other") == got {
		t.Fatalf("Sign must be deterministic and keyed")
	}
}

func TestValidateURL(t *testing.T) {
	for raw, ok := range map[string]bool{
		"https://example.com/hook": true,
		"http://10.0.0.1:8080/cb":  true,
		"ftp://example.com":        false,
		"/relative":                false,
		"":                         false,
		"https://":                 false,
	} {
		if err := ValidateURL(raw); (err == nil) != ok {
			t.Errorf("ValidateURL(%q) = %v, want ok=%v", raw, err, ok)
		}
	}
}
