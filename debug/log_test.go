package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogWritesCategoryAndMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer Disable()

	Log("tempo", "accepted %d", 128)
	for i := 0; i < 6; i++ {
		LogEvery(3, "frame", "tick")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "tempo") || !strings.Contains(out, "accepted 128") {
		t.Errorf("log missing tempo line:\n%s", out)
	}
	if n := strings.Count(out, "tick (every 3"); n != 2 {
		t.Errorf("LogEvery wrote %d lines, want 2:\n%s", n, out)
	}
}

func TestLogDisabledIsSilent(t *testing.T) {
	Disable()
	if Enabled() {
		t.Fatal("Enabled() after Disable")
	}
	// Must not panic with no file open.
	Log("x", "y")
	LogEvery(1, "x", "y")
}
