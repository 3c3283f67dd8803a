package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestModmapHandler(t *testing.T) {
	t.Run("formats tab-separated fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&modmapHandler{w: &buf, opID: "Add-20250310T090000Z"})

		logger.Info("module added", "collection", "modules", "module", "app.UserService")

		line := strings.TrimSuffix(buf.String(), "\n")
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			t.Fatalf("fields = %d (%q), want 6", len(fields), line)
		}
		if fields[1] != "INFO" || fields[2] != "Add-20250310T090000Z" || fields[3] != "module added" {
			t.Errorf("line = %q", line)
		}
		if fields[4] != "collection=modules" || fields[5] != "module=app.UserService" {
			t.Errorf("attrs = %v", fields[4:])
		}
	})

	t.Run("WithAttrs carries attributes forward", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&modmapHandler{w: &buf, opID: "op"}).With("collection", "modules")

		logger.Warn("slow save")

		if !strings.Contains(buf.String(), "collection=modules") {
			t.Errorf("line = %q, missing carried attribute", buf.String())
		}
	})
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := &slogAdapter{l: slog.New(&modmapHandler{w: &buf, opID: "op"})}

	adapter.Error("storage operation failed", "op", "save")

	out := buf.String()
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "op=save") {
		t.Errorf("line = %q", out)
	}
}
