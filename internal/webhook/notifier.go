// Package webhook delivers signed batch completion callbacks.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	EventBatchDone   = "batch.done"
	EventBatchFailed = "batch.failed"

	SignatureHeader = "X-Webhook-Signature"
)

var ErrInvalidURL = errors.New("callback URL must be an absolute http(s) URL")

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

type Notifier struct {
	secret     string
	httpClient *http.Client
}

// NewNotifier signs deliveries with secret; an empty secret sends them unsigned.
func NewNotifier(secret string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify POSTs payload as JSON to target. Non-2xx responses are errors.
func (n *Notifier) Notify(ctx context.Context, target, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-ID", deliveryID)
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver webhook: status %d", resp.StatusCode)
	}
	slog.Info("webhook delivered", "event", event, "delivery_id", deliveryID, "status", resp.StatusCode)
	return nil
}

// Sign returns the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
