package testutil

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that discards output
func NewTestLogger(t *testing.T) *utils.Logger {
	t.Helper()

	zlogger := zerolog.New(io.Discard).With().
		Timestamp().
		Str("test", t.Name()).
		Logger()

	return &utils.Logger{Logger: zlogger}
}

// SyncBuffer is a goroutine-safe bytes.Buffer for capturing log output
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer
func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the captured output
func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewCapturingLogger creates a JSON debug logger writing into the returned buffer
func NewCapturingLogger(t *testing.T) (*utils.Logger, *SyncBuffer) {
	t.Helper()

	buf := &SyncBuffer{}
	return utils.NewLogger(utils.LoggerOptions{
		Level:  "debug",
		Format: "json",
		Output: buf,
	}), buf
}
