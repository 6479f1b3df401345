package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"textoverlay/internal/httpkit"
	"textoverlay/internal/pkg/errors"
)

// ListRenders returns the most recent renders, newest first.
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) error {
	if h.ledger == nil {
		return errors.Unavailable("ledger")
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return errors.ValidationField("limit", "limit must be a positive integer")
		}
		limit = v
	}

	renders, err := h.ledger.List(r.Context(), limit)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"renders": renders})
	return nil
}

// GetRender returns one ledger record.
func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) error {
	if h.ledger == nil {
		return errors.Unavailable("ledger")
	}

	rec, err := h.ledger.Get(r.Context(), chi.URLParam(r, "renderId"))
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"render": rec})
	return nil
}
