package handlers

import (
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/pdfprecheck/internal/runs"
)

type RunHandler struct {
	store runs.Store
}

func NewRunHandler(store runs.Store) *RunHandler {
	return &RunHandler{store: store}
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": list, "count": len(list)})
}
