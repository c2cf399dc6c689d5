package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "engine",
		JSONFormat: true,
		Output:     &buf,
	})

	log.Info("document classified", F("kind", "digital"), F("pages", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "document classified", entry["message"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "digital", entry["kind"])
	assert.Equal(t, float64(3), entry["pages"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelWarn,
		Component:  "engine",
		JSONFormat: true,
		Output:     &buf,
	})

	log.Debug("suppressed")
	log.Info("suppressed")
	assert.Zero(t, buf.Len())

	log.Warn("emitted")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		Component:  "engine",
		JSONFormat: true,
		Output:     &buf,
	})

	child := log.With(F("run_id", "abc-123"))
	child.Info("extraction started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc-123", entry["run_id"])
}

func TestCaptureSink(t *testing.T) {
	sink := NewCaptureSink()
	log := NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "engine",
		JSONFormat: true,
		Output:     &bytes.Buffer{},
		Sinks:      []Sink{sink},
	})

	log.Error("backend failed", Err(errors.New("timeout")))
	log.Info("falling back")

	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "backend failed", entries[0].Message)
	assert.Equal(t, "falling back", entries[1].Message)

	sink.Reset()
	assert.Empty(t, sink.Entries())
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and With must keep returning a usable logger.
	log.With(F("k", "v")).Info("ignored")
}
