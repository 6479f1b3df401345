package handlers

import (
	"net/http"

	"textoverlay/internal/httpkit"
	"textoverlay/internal/render"
)

type renderResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	RenderID string `json:"renderId"`
	Key      string `json:"key"`
}

// PostRender runs a render and answers once the output is published.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) error {
	var req render.Request
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		return err
	}

	res, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, renderResponse{
		Status:   "completed",
		URL:      res.URL,
		RenderID: res.RenderID,
		Key:      res.Key,
	})
	return nil
}
