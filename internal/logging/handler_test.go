// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "not JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", FormatJSON, slog.LevelInfo, &buf)

	logger.Info("session issued", "session_id", "abc")

	entry := decode(t, &buf)
	assert.Equal(t, "session issued", entry["msg"])
	assert.Equal(t, "inkwell", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, "abc", entry["session_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", FormatText, slog.LevelInfo, &buf)

	logger.Info("session issued")

	assert.Contains(t, buf.String(), "session issued")
	assert.Contains(t, buf.String(), "service=inkwell")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("inkwell", "dev", "", slog.LevelInfo, &buf).Info("hello")
	decode(t, &buf)
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "dev", FormatJSON, slog.LevelWarn, &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "WARN", decode(t, &buf)["level"])
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", FormatJSON, slog.LevelInfo, &buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "traced")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_WithAttrsKeepsStamps(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("inkwell", "1.0.0", FormatJSON, slog.LevelInfo, &buf).With("component", "web")

	logger.Info("request")

	entry := decode(t, &buf)
	assert.Equal(t, "web", entry["component"])
	assert.Equal(t, "inkwell", entry["service"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat(""))
	assert.True(t, ValidFormat(FormatJSON))
	assert.True(t, ValidFormat(FormatText))
	assert.False(t, ValidFormat("xml"))
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	logger := SetDefault("inkwell", "2.0.0", FormatJSON, slog.LevelInfo)
	assert.Same(t, logger, slog.Default())
}
