package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/web"
)

// UIHandler serves the browser upload flow.
type UIHandler struct {
	svc      Processor
	pages    *web.Renderer
	maxBytes int64
}

func NewUIHandler(svc Processor, pages *web.Renderer, maxBytes int64) *UIHandler {
	return &UIHandler{svc: svc, pages: pages, maxBytes: maxBytes}
}

func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, http.StatusOK, "")
}

func (h *UIHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uploads, err := readUploads(w, r, h.maxBytes)
	if err != nil {
		h.renderIndex(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.svc.Process(r.Context(), models.RunSourceUI, uploads)
	if err != nil {
		h.renderIndex(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.Result(w, b); err != nil {
		slog.Error("render result page", "error", err)
	}
}

// Download returns the text posted back from the result page as a file.
func (h *UIHandler) Download(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "text too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// browsers submit form text with CRLF line breaks
	text := bundle.NormalizeNewlines(r.PostFormValue("text"))
	writeText(w, downloadName(r.PostFormValue("filename")), text)
}

func (h *UIHandler) renderIndex(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.Index(w, msg); err != nil {
		slog.Error("render index page", "error", err)
	}
}

// downloadName accepts a posted bundle filename when it is a bare
// "<client>_precheck_input.txt" name.
func downloadName(name string) string {
	fallback := bundle.DownloadFilename(bundle.UnknownClient)
	clientID, ok := strings.CutSuffix(name, bundle.DownloadFilename(""))
	if !ok || clientID == "" {
		return fallback
	}
	for _, r := range clientID {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return fallback
		}
	}
	return name
}
