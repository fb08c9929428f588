package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/strongdm/labelpatch/internal/config"
)

func TestNew_JSONFormatWritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{LogFormat: "json", LogLevel: "info"}, &buf)
	log.Info("patched", zap.Int("labels", 36))
	_ = log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "patched" {
		t.Fatalf("msg: got %v", entry["msg"])
	}
	if entry["labels"] != float64(36) {
		t.Fatalf("labels: got %v", entry["labels"])
	}
}

func TestNew_LevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(&config.Config{LogFormat: "console", LogLevel: "warn"}, &buf)
	log.Info("hidden")
	log.Debug("hidden too")
	log.Warn("shown")
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info/debug leaked at warn level:\n%s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn entry missing:\n%s", out)
	}
}

func TestLevel_UnknownFallsBackToWarn(t *testing.T) {
	if got := Level("verbose").Level(); got != zap.WarnLevel {
		t.Fatalf("Level(verbose) = %v, want warn", got)
	}
}
