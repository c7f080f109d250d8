package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerFormatsAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("component", "sweeper").WithGroup("run").Info("sweep finished",
		"deleted", 3,
		"took", 1500*time.Millisecond,
		"note", "two words",
		slog.Group("lock", "key", "portfolio-cms:trash-sweep"),
	)

	out := buf.String()
	assert.Contains(t, out, "sweep finished")
	assert.Contains(t, out, "component"+reset+"=sweeper")
	assert.Contains(t, out, "run.deleted"+reset+"=3")
	assert.Contains(t, out, "run.took"+reset+"=1.5s")
	assert.Contains(t, out, `run.note`+reset+`="two words"`)
	assert.Contains(t, out, "run.lock.key"+reset+"=portfolio-cms:trash-sweep")
	assert.Equal(t, byte('\n'), out[len(out)-1])
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewSelectsFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slog.New(New(&buf, "json", "debug")).Debug("trash purged", "trash_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trash purged", line["msg"])
	assert.Equal(t, "abc", line["trash_id"])

	_, pretty := New(&buf, "pretty", "info").(*PrettyHandler)
	assert.True(t, pretty)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
