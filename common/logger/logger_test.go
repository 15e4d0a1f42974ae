package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithSequence(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	log.WithContext(ctx).WithSequence("abc", 7, "BADA55").Info("sequence computed")

	entry := decode(t, &buf)
	assert.Equal(t, "sequence computed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "abc", entry["sequence_id"])
	assert.Equal(t, float64(7), entry["collection_id"])
	assert.Equal(t, "BADA55", entry["color"])
}

func TestError_AddsStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")

	log.Error("failed", "error", "boom")

	entry := decode(t, &buf)
	assert.Contains(t, entry["stack"], "TestError_AddsStack")
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.WithCollection(3).Warn("kept")
	assert.Equal(t, float64(3), decode(t, &buf)["collection_id"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "debug", "text").Debug("hello", "color", "BADA55")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "BADA55")
}
