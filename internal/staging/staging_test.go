package staging

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"textoverlay/internal/pkg/logger"
)

func newArea(t *testing.T) *Area {
	t.Helper()
	a, err := NewArea(filepath.Join(t.TempDir(), "scratch"))
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	return a
}

func TestNewAreaRequiresRoot(t *testing.T) {
	if _, err := NewArea("  "); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestStageCreatesDirectory(t *testing.T) {
	a := newArea(t)
	req, err := a.Stage("rnd")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	info, err := os.Stat(req.Dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected render directory, err=%v", err)
	}
	if filepath.Dir(req.Dir) != a.Root() {
		t.Errorf("render directory %s not under root %s", req.Dir, a.Root())
	}
	if !a.Active(req.ID) {
		t.Error("staged request should be active")
	}
}

func TestConcurrentStagesAreDistinct(t *testing.T) {
	a := newArea(t)

	const n = 64
	var wg sync.WaitGroup
	dirs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := a.Stage("rnd")
			if err != nil {
				t.Errorf("Stage: %v", err)
				return
			}
			dirs <- req.Dir
		}()
	}
	wg.Wait()
	close(dirs)

	seen := make(map[string]bool)
	for d := range dirs {
		if seen[d] {
			t.Fatalf("directory %s handed out twice", d)
		}
		seen[d] = true
	}
}

func TestPathRegistersBeforeWrite(t *testing.T) {
	a := newArea(t)
	req, _ := a.Stage("rnd")

	p := req.Path("../escape/video.mp4")
	if filepath.Dir(p) != req.Dir {
		t.Errorf("path %s escaped render directory", p)
	}

	owned := req.Owned()
	if len(owned) != 2 || owned[0] != req.Dir || owned[1] != p {
		t.Errorf("unexpected owned set: %v", owned)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("Path must not create the file")
	}
}

func TestCleanupRemovesEverything(t *testing.T) {
	a := newArea(t)
	req, _ := a.Stage("rnd")

	written := req.Path("video.mp4")
	if err := os.WriteFile(written, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = req.Path("never-written.mp4")

	if warnings := req.Cleanup(); len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	for _, p := range req.Owned() {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists", p)
		}
	}
	if a.Active(req.ID) {
		t.Error("request should be released after cleanup")
	}
}

func TestCleanupRunsOnce(t *testing.T) {
	a := newArea(t)
	req, _ := a.Stage("rnd")
	req.Cleanup()

	// A directory recreated after cleanup belongs to someone else.
	if err := os.Mkdir(req.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	req.Cleanup()
	if _, err := os.Stat(req.Dir); err != nil {
		t.Error("second Cleanup must be a no-op")
	}
}

func TestCleanupToleratesRemovedDirectory(t *testing.T) {
	a := newArea(t)
	req, _ := a.Stage("rnd")
	p := req.Path("a.txt")
	_ = os.WriteFile(p, []byte("x"), 0o644)

	if err := os.RemoveAll(req.Dir); err != nil {
		t.Fatal(err)
	}
	if warnings := req.Cleanup(); len(warnings) != 0 {
		t.Errorf("missing paths should be swallowed, got %v", warnings)
	}
}

func TestSweepRemovesOnlyStaleInactive(t *testing.T) {
	a := newArea(t)

	stale := filepath.Join(a.Root(), "rnd_orphan")
	if err := os.Mkdir(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(a.Root(), "rnd_fresh")
	if err := os.Mkdir(fresh, 0o755); err != nil {
		t.Fatal(err)
	}

	live, _ := a.Stage("rnd")
	if err := os.Chtimes(live.Dir, old, old); err != nil {
		t.Fatal(err)
	}

	res := a.Sweep(time.Hour, logger.Discard())
	if len(res.Removed) != 1 || res.Removed[0] != stale {
		t.Errorf("unexpected removals: %v", res.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh directory should survive")
	}
	if _, err := os.Stat(live.Dir); err != nil {
		t.Error("active render directory should survive")
	}
}

func TestSweepMissingRoot(t *testing.T) {
	a := &Area{root: filepath.Join(t.TempDir(), "gone"), active: map[string]struct{}{}}
	res := a.Sweep(time.Minute, nil)
	if len(res.Errors) != 0 || len(res.Removed) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	a := newArea(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.RunJanitor(ctx, 5*time.Millisecond, time.Hour, logger.Discard())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
