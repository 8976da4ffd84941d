package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"epublift/internal/logging"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Level: "info", Format: "console"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	logger = logging.WithComponent(logger, "workflow")
	logger.Info("upload complete", logging.String("bookflow_id", "bf1"), logging.Int("bytes", 42))

	line := buf.String()
	if !strings.Contains(line, "INFO workflow: upload complete") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "bookflow_id=bf1") || !strings.Contains(line, "bytes=42") {
		t.Fatalf("attrs missing from line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Format: "console"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	logger.Info("created", logging.String("title", "A Study in Scarlet"))
	if !strings.Contains(buf.String(), `title="A Study in Scarlet"`) {
		t.Fatalf("expected quoted title, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Level: "warn", Format: "console"})
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	if _, err := logging.New(&bytes.Buffer{}, logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerStaysSilent(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("nothing should panic or print", logging.Error(nil))
}
