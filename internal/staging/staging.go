// Package staging owns the per-render scratch directories.
//
// Every render gets its own directory under the scratch root. Paths handed out
// by a Request are recorded before anything is written to them, and Cleanup
// removes all of them exactly once regardless of how far the render got.
package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/util"
)

const maxStageAttempts = 5

// Area is a scratch root shared by concurrent renders.
type Area struct {
	root string

	mu     sync.Mutex
	active map[string]struct{}
}

// NewArea creates root if needed.
func NewArea(root string) (*Area, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, apperrors.ValidationField("scratch_dir", "scratch directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrap(err, "staging.NewArea", "create scratch directory")
	}
	return &Area{root: root, active: make(map[string]struct{})}, nil
}

// Root returns the scratch root.
func (a *Area) Root() string { return a.root }

// Stage reserves a fresh directory for one render. The directory is created
// with an exclusive mkdir so two renders can never share one, even if their
// identifiers were generated in the same clock tick.
func (a *Area) Stage(tag string) (*Request, error) {
	if tag == "" {
		tag = "rnd"
	}

	var lastErr error
	for attempt := 0; attempt < maxStageAttempts; attempt++ {
		id := util.NewID(tag)
		dir := filepath.Join(a.root, id)

		err := os.Mkdir(dir, 0o755)
		if errors.Is(err, fs.ErrExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "staging.Stage", "create render directory")
		}

		a.mu.Lock()
		a.active[id] = struct{}{}
		a.mu.Unlock()

		return &Request{ID: id, Dir: dir, area: a, owned: []string{dir}}, nil
	}
	return nil, apperrors.Wrap(lastErr, "staging.Stage", fmt.Sprintf("no free render directory after %d attempts", maxStageAttempts))
}

// Active reports whether id belongs to a render that has not cleaned up yet.
func (a *Area) Active(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.active[id]
	return ok
}

func (a *Area) release(id string) {
	a.mu.Lock()
	delete(a.active, id)
	a.mu.Unlock()
}

// Request is the scratch space of a single render.
type Request struct {
	ID  string
	Dir string

	area *Area

	mu      sync.Mutex
	owned   []string
	cleaned bool
}

// Path allocates name inside the render directory and records it for
// cleanup. Only the base name of name is used.
func (r *Request) Path(name string) string {
	p := filepath.Join(r.Dir, filepath.Base(name))

	r.mu.Lock()
	r.owned = append(r.owned, p)
	r.mu.Unlock()

	return p
}

// Owned returns a copy of every path recorded so far, directory first.
func (r *Request) Owned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.owned...)
}

// Cleanup removes owned paths in reverse allocation order. Missing paths are
// ignored. Other failures are returned as warnings for the caller to log and
// never stop the remaining removals. Calls after the first are no-ops.
func (r *Request) Cleanup() []error {
	r.mu.Lock()
	if r.cleaned {
		r.mu.Unlock()
		return nil
	}
	r.cleaned = true
	owned := r.owned
	r.mu.Unlock()

	var warnings []error
	for i := len(owned) - 1; i >= 0; i-- {
		p := owned[i]
		var err error
		if p == r.Dir {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Errorf("remove %s: %w", p, err))
		}
	}

	if r.area != nil {
		r.area.release(r.ID)
	}
	return warnings
}
