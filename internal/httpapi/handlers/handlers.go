// Package handlers implements the HTTP endpoints of the render service.
package handlers

import (
	"context"

	"textoverlay/internal/ledger"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/ports"
	"textoverlay/internal/render"
)

// Renderer runs one render synchronously.
type Renderer interface {
	Render(ctx context.Context, req render.Request) (*render.Result, error)
}

type Deps struct {
	Renderer Renderer
	// Ledger is optional; the history endpoints answer 503 without it.
	Ledger     ledger.Reader
	Storage    ports.StorageProvider
	Probes     map[string]ports.Probe
	ProbeOrder []string
	Version    string
	Log        *logger.Logger
}

type Handler struct {
	renderer   Renderer
	ledger     ledger.Reader
	sp         ports.StorageProvider
	probes     map[string]ports.Probe
	probeOrder []string
	version    string
	log        *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		renderer:   d.Renderer,
		ledger:     d.Ledger,
		sp:         d.Storage,
		probes:     d.Probes,
		probeOrder: d.ProbeOrder,
		version:    version,
		log:        log.WithComponent("http"),
	}
}

// Log is the logger error-returning handlers report through.
func (h *Handler) Log() *logger.Logger { return h.log }
