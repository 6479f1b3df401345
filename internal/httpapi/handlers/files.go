package handlers

import (
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"textoverlay/internal/pkg/errors"
)

// ServeFile streams a stored object. Public URLs of the localfs provider
// point here.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "*")
	if key == "" {
		return errors.ValidationField("key", "object key is required")
	}

	rc, ct, size, err := h.sp.GetObject(r.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NotFound("file", key)
		}
		return errors.Wrap(err, "handlers.ServeFile", "read stored object")
	}
	defer rc.Close()

	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Debug("file stream interrupted", "key", key, "error", err.Error())
	}
	return nil
}
