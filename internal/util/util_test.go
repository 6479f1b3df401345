package util

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TO_STR", "  value ")
	t.Setenv("TO_BOOL", "true")
	t.Setenv("TO_BAD_BOOL", "maybe")
	t.Setenv("TO_INT", "42")
	t.Setenv("TO_DUR", "90s")
	t.Setenv("TO_CSV", "a, ,b,")

	if got := Env("TO_STR", "def"); got != "value" {
		t.Errorf("Env = %q", got)
	}
	if got := Env("TO_MISSING", "def"); got != "def" {
		t.Errorf("Env default = %q", got)
	}
	if !BoolEnv("TO_BOOL", false) {
		t.Error("BoolEnv should be true")
	}
	if !BoolEnv("TO_BAD_BOOL", true) {
		t.Error("BoolEnv should fall back on invalid input")
	}
	if got := IntEnv("TO_INT", 1); got != 42 {
		t.Errorf("IntEnv = %d", got)
	}
	if got := DurationEnv("TO_DUR", time.Second); got != 90*time.Second {
		t.Errorf("DurationEnv = %s", got)
	}
	if got := CSVEnv("TO_CSV", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("CSVEnv = %v", got)
	}
}

func TestNewIDUnique(t *testing.T) {
	const n = 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewID("rnd")
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
	for id := range seen {
		if !strings.HasPrefix(id, "rnd_") {
			t.Fatalf("unexpected id format: %s", id)
		}
		break
	}
}
