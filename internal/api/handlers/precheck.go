package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/naming"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
)

type Processor interface {
	Process(ctx context.Context, source string, uploads []precheck.Upload) (*bundle.Bundle, error)
}

type PrecheckHandler struct {
	svc      Processor
	maxBytes int64
}

func NewPrecheckHandler(svc Processor, maxBytes int64) *PrecheckHandler {
	return &PrecheckHandler{svc: svc, maxBytes: maxBytes}
}

func (h *PrecheckHandler) process(w http.ResponseWriter, r *http.Request) (*bundle.Bundle, bool) {
	uploads, err := readUploads(w, r, h.maxBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	b, err := h.svc.Process(r.Context(), models.RunSourceSync, uploads)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return b, true
}

func (h *PrecheckHandler) Generate(w http.ResponseWriter, r *http.Request) {
	b, ok := h.process(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *PrecheckHandler) Download(w http.ResponseWriter, r *http.Request) {
	b, ok := h.process(w, r)
	if !ok {
		return
	}
	writeText(w, b.Filename, b.Text)
}

type parseRequest struct {
	Filenames []string `json:"filenames"`
}

type parsedName struct {
	Filename string `json:"filename"`
	naming.Name
	Known bool `json:"known"`
}

func (h *PrecheckHandler) ParseFilenames(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Filenames) == 0 {
		writeError(w, http.StatusBadRequest, "filenames required")
		return
	}

	out := make([]parsedName, len(req.Filenames))
	docs := make([]bundle.Document, len(req.Filenames))
	for i, f := range req.Filenames {
		n := naming.ParseFilename(f)
		out[i] = parsedName{Filename: f, Name: n, Known: n.Known()}
		docs[i] = bundle.Document{Filename: f, Name: n}
	}
	clientID, warnings := bundle.DetectClient(docs)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"client_id": clientID,
		"warnings":  warnings,
		"names":     out,
	})
}
