package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carevoice/carevoice/internal/config"
)

const watcherBaseYAML = `
server:
  log_level: info
engine:
  language: en-US
providers:
  stt:
    name: deepgram
  tts:
    name: elevenlabs
  audio:
    name: pulse
`

const watcherRetunedYAML = `
server:
  log_level: debug
engine:
  language: en-US
  vocabulary:
    - Metformin
providers:
  stt:
    name: deepgram
  tts:
    name: elevenlabs
  audio:
    name: pulse
`

// tempConfig writes content to a fresh temp file and returns its path.
func tempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	rewriteConfig(t, path, content)
	return path
}

func rewriteConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	path := tempConfig(t, watcherBaseYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() = nil after initial load")
	}
	if got := cfg.Server.LogLevel; got != config.LogInfo {
		t.Errorf("log_level = %q, want %q", got, config.LogInfo)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/path.yaml", nil); err == nil {
		t.Fatal("NewWatcher on missing file: want error, got nil")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	path := tempConfig(t, watcherBaseYAML)

	type change struct{ old, new *config.Config }
	changes := make(chan change, 1)

	w, err := config.NewWatcher(path, func(old, updated *config.Config) {
		select {
		case changes <- change{old, updated}:
		default:
		}
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Let the first poll pass before rewriting so the mtime moves.
	time.Sleep(100 * time.Millisecond)
	rewriteConfig(t, path, watcherRetunedYAML)

	var got change
	select {
	case got = <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("change callback not invoked within timeout")
	}

	if got.old == nil || got.new == nil {
		t.Fatal("callback received nil configs")
	}
	if got.old.Server.LogLevel != config.LogInfo {
		t.Errorf("old log_level = %q, want %q", got.old.Server.LogLevel, config.LogInfo)
	}
	if got.new.Server.LogLevel != config.LogDebug {
		t.Errorf("new log_level = %q, want %q", got.new.Server.LogLevel, config.LogDebug)
	}
	if cur := w.Current(); cur.Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log_level = %q, want %q", cur.Server.LogLevel, config.LogDebug)
	}
}

func TestWatcher_InvalidFileKeepsOldConfig(t *testing.T) {
	t.Parallel()
	path := tempConfig(t, watcherBaseYAML)

	var calls atomic.Int32
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		calls.Add(1)
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	rewriteConfig(t, path, "server:\n  log_level: bananas\n")
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback fired %d times for an invalid revision, want 0", n)
	}
	if cur := w.Current(); cur.Server.LogLevel != config.LogInfo {
		t.Errorf("Current() log_level = %q, want previous %q", cur.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_TouchWithoutContentChange(t *testing.T) {
	t.Parallel()
	path := tempConfig(t, watcherBaseYAML)

	var calls atomic.Int32
	w, err := config.NewWatcher(path, func(_, _ *config.Config) {
		calls.Add(1)
	}, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Bump the mtime; content stays byte-identical.
	time.Sleep(100 * time.Millisecond)
	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("touch: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback fired %d times for a touch-only change, want 0", n)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	path := tempConfig(t, watcherBaseYAML)

	w, err := config.NewWatcher(path, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()
}
