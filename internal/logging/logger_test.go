package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mkvtag/internal/logging"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "watcher")
	component.Info("file tagged",
		logging.String(logging.FieldFile, "movie.mkv"),
		logging.Int(logging.FieldFailedCount, 2),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO watcher: file tagged") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "file=movie.mkv") || !strings.Contains(line, "failed_count=2") {
		t.Fatalf("attrs missing: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("event", logging.String("detail", "two words"))
	if !strings.Contains(buf.String(), `detail="two words"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn missing: %q", out)
	}
}

func TestJSONHandlerRenamesCoreFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("file tagged", logging.String(logging.FieldFile, "movie.mkv"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "file tagged" {
		t.Fatalf("msg field: %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("level field: %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("ts field missing")
	}
	if entry[logging.FieldFile] != "movie.mkv" {
		t.Fatalf("attr missing: %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestErrorAttrHandlesNil(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("event", logging.Error(nil))
	if buf.Len() == 0 {
		t.Fatal("expected output")
	}
}
