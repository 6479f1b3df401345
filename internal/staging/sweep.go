package staging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"textoverlay/internal/pkg/logger"
)

// SweepResult reports what a stale sweep removed.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory with the error that kept it on disk.
type SweepError struct {
	Path string
	Err  error
}

// Sweep removes render directories older than maxAge that no live render
// owns. Those are leftovers from a process that died mid-render.
func (a *Area) Sweep(maxAge time.Duration, log *logger.Logger) SweepResult {
	var result SweepResult

	entries, err := os.ReadDir(a.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: a.root, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() || a.Active(entry.Name()) {
			continue
		}

		dir := filepath.Join(a.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			if log != nil {
				log.WithError(err).Warn("failed to remove stale render directory", "path", dir)
			}
			continue
		}
		result.Removed = append(result.Removed, dir)
		if log != nil {
			log.Info("removed stale render directory", "path", dir, "age", time.Since(info.ModTime()).String())
		}
	}

	return result
}

// RunJanitor sweeps every interval until ctx is done.
func (a *Area) RunJanitor(ctx context.Context, interval, maxAge time.Duration, log *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := a.Sweep(maxAge, log)
			if log != nil && (len(res.Removed) > 0 || len(res.Errors) > 0) {
				log.Debug("staging sweep finished", "removed", len(res.Removed), "errors", len(res.Errors))
			}
		}
	}
}
