package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "tiback-test",
		Environment: "test",
	})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSession(ctx, 42, "analista")
	logger.InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "tiback-test", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(42), entry["user_id"])
	assert.Equal(t, "analista", entry["role"])
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestHTTPRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &HTTPRequestLogger{Logger: NewLogger(Config{Level: "info", Format: "json", Output: &buf})}

	l.LogRequest(context.Background(), "GET", "/api/tickets", 200, time.Millisecond, 10, nil)
	assert.Zero(t, buf.Len(), "successful calls log at debug")

	l.LogRequest(context.Background(), "POST", "/api/login", 0, time.Second, 0, errors.New("dial tcp: refused"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/api/login", entry["path"])
	assert.Equal(t, "dial tcp: refused", entry["error"])
}
