package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func newCaptureLogger(t *testing.T) (*Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	core := NewMultiCoreWithWriters(zapcore.DebugLevel, buf, zapcore.AddSync(&bytes.Buffer{}), false)
	zl := zap.New(core)
	return &Logger{zap: zl, sugar: zl.Sugar()}, buf
}

// TestLogger_StructuredOutput tests that entries are valid JSON with the
// standard field names.
func TestLogger_StructuredOutput(t *testing.T) {
	logger, buf := newCaptureLogger(t)

	logger.Info("job admitted", zap.String("job_id", "j-1"), zap.Int("steps", 50))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if entry[FieldMessage] != "job admitted" {
		t.Errorf("message = %v", entry[FieldMessage])
	}
	if entry[FieldLevel] != "info" {
		t.Errorf("level = %v", entry[FieldLevel])
	}
	if entry["job_id"] != "j-1" {
		t.Errorf("job_id = %v", entry["job_id"])
	}
}

// TestLogger_RedactsSensitiveFields tests that credential fields never reach output.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logger, buf := newCaptureLogger(t)

	logger.Info("configured", zap.String("ai_service_auth_token", "supersecretvalue"))

	out := buf.String()
	if strings.Contains(out, "supersecretvalue") {
		t.Errorf("raw credential leaked into log output: %s", out)
	}
	if !strings.Contains(out, RedactedPlaceholder) {
		t.Errorf("expected redaction placeholder in output: %s", out)
	}
}

// TestLogger_RedactsSugaredPairs tests redaction through the sugared API.
func TestLogger_RedactsSugaredPairs(t *testing.T) {
	logger, buf := newCaptureLogger(t)

	logger.Infow("configured", "api_key", "sk-abcdefghijklmnopqrstuvwxyz")

	if strings.Contains(buf.String(), "sk-abcdefghijklmnopqrstuvwxyz") {
		t.Errorf("raw credential leaked into sugared output: %s", buf.String())
	}
}

// TestLogger_SyncNil tests that Sync on a nil logger is safe.
func TestLogger_SyncNil(t *testing.T) {
	var logger *Logger
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() on nil = %v, want nil", err)
	}
}
