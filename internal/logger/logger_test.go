package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("database", "connected")
	l.Error("report", "mail failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "DATABASE", entries[0].Category)
	assert.Equal(t, "connected", entries[0].Message)
	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "logger_test.go", entries[0].File)
}

func TestLogger_SetLevelFiltersLowerEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(WARN)

	l.Debug("x", "hidden")
	l.Info("x", "hidden")
	l.Warn("x", "shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLogger_NopAndNilAreSafe(t *testing.T) {
	NewNop().Info("x", "y")
	var l *Logger
	l.Warn("x", "y")
}

func TestMiddleware_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/visitors", nil))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "API", entries[0].Category)
	assert.Contains(t, entries[0].Message, "GET /api/visitors - 418")
}
