// Package httpkit holds small HTTP helpers shared by the API handlers.
package httpkit

import (
	"encoding/json"
	"io"
	"net/http"

	"textoverlay/internal/pkg/errors"
)

// DecodeJSON decodes the request body into v. Unknown fields are ignored so
// callers may attach their own metadata. Any failure is reported as a
// validation error.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.Validation("request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Validation("request body too large")
		}
		return errors.WrapWithCode(err, errors.CodeValidation, "decode", "invalid json body")
	}
	if dec.More() {
		return errors.Validation("invalid json body: trailing data")
	}
	return nil
}

// WriteJSON writes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
