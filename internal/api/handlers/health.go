package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Pinger is satisfied by the database pool, the Redis cache and the OCR tools.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const checkTimeout = 3 * time.Second

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler takes named dependency checks; nil entries are skipped.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	active := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthHandler{checks: active}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz runs every check in parallel, each bounded by checkTimeout, and
// reports 503 if any fails.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := h.run(r.Context())

	status, state := http.StatusOK, "ok"
	for _, v := range results {
		if v != "ok" {
			status, state = http.StatusServiceUnavailable, "unhealthy"
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}

func (h *HealthHandler) run(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := "ok"
			if err := p.Ping(ctx); err != nil {
				res = "unhealthy: " + err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}
