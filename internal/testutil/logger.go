package testutil

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grandtrade/gta/internal/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestLogger captures everything a *logging.Logger writes, stdout and
// stderr records alike.
//
// Example usage:
//
//	tl := testutil.NewTestLogger(t, "debug")
//	tl.Logger.Info("Loaded %s", logging.Secret("password123"))
//	tl.AssertRedacted(t, "password123")
type TestLogger struct {
	Logger *logging.Logger
	out    *syncBuffer
}

// NewTestLogger creates a console logger at level writing to a buffer.
func NewTestLogger(t *testing.T, level string) *TestLogger {
	t.Helper()

	out := &syncBuffer{}
	logger, err := logging.NewWithOptions(logging.Options{
		Level:   level,
		NoColor: true,
		Stdout:  out,
		Stderr:  out,
	})
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return &TestLogger{Logger: logger, out: out}
}

// GetOutput returns everything logged since creation or the last Clear.
func (l *TestLogger) GetOutput() string {
	_ = l.Logger.Sync()
	return l.out.String()
}

// Clear drops captured output.
func (l *TestLogger) Clear() {
	l.out.Reset()
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does NOT contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr, "Expected log output to NOT contain %q", substr)
}

// AssertRedacted asserts that secretValue never reached the log output and
// that a redaction marker did.
func (l *TestLogger) AssertRedacted(t *testing.T, secretValue string) {
	t.Helper()

	output := l.GetOutput()
	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in logs", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker in logs when secret is used")
}
