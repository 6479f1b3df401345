package handlers

import (
	"context"
	"net/http"
	"time"

	"textoverlay/internal/httpkit"
)

const probeTimeout = 5 * time.Second

// Health reports liveness. With ?deep=true it also runs every dependency
// probe and reports "degraded" when any of them fails. The status code is
// always 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{
		"status":  "ok",
		"service": "textoverlay-api",
		"version": h.version,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, c := range checks {
			if c["status"] != "ok" {
				health["status"] = "degraded"
				h.log.FromContext(ctx).Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := make(map[string]map[string]any, len(h.probeOrder))
	for _, name := range h.probeOrder {
		probe, ok := h.probes[name]
		if !ok {
			continue
		}
		checks[name] = runProbe(ctx, probe)
	}
	return checks
}

func runProbe(ctx context.Context, probe func(context.Context) (string, error)) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	detail, err := probe(checkCtx)
	if err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}
	if detail != "" {
		result["detail"] = detail
	}
	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
