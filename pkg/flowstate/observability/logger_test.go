package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records as JSON lines.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) lastRecord() map[string]any {
	lines := bytes.Split(bytes.TrimSpace(h.buf.Bytes()), []byte("\n"))
	if len(lines) == 0 || len(lines[len(lines)-1]) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &m); err != nil {
		return nil
	}
	return m
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds manager_id", func(t *testing.T) {
		h := newTestHandler()
		enriched := EnrichLogger(slog.New(h), "mgr-123")
		enriched.Info("test message")

		record := h.lastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "mgr-123", record["manager_id"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "mgr-123"))
	})
}

func TestLogTransaction(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogTransactionStart(logger, true)
	record := h.lastRecord()
	require.NotNil(t, record)
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "transaction starting", record["msg"])
	assert.Equal(t, true, record["delayed"])

	LogTransactionComplete(logger, false, 3, 2, 1.5)
	record = h.lastRecord()
	assert.Equal(t, "transaction completed", record["msg"])
	assert.Equal(t, float64(3), record["changed_keys"])
	assert.Equal(t, float64(2), record["targets"])
	assert.Equal(t, 1.5, record["duration_ms"])

	LogTransactionError(logger, false, errors.New("boom"), 0.5)
	record = h.lastRecord()
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "boom", record["error"])
}

func TestLogRegistration(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogControlRegistered(logger, "door", []string{"button1", "button2"})
	record := h.lastRecord()
	assert.Equal(t, "control registered", record["msg"])
	assert.Equal(t, "door", record["control_id"])
	assert.Equal(t, []any{"button1", "button2"}, record["reads"])

	LogAssignmentRegistered(logger, "button2", []string{"button1"}, 0)
	record = h.lastRecord()
	assert.Equal(t, "assignment registered", record["msg"])
	assert.Equal(t, "button2", record["storage"])
}

func TestLogDelayed(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogDelayedScheduled(logger, "c", "task-1", 250*time.Millisecond)
	record := h.lastRecord()
	assert.Equal(t, "delayed assignment scheduled", record["msg"])
	assert.Equal(t, "task-1", record["task_id"])
	assert.Equal(t, float64(250*time.Millisecond), record["timeout"])

	LogDelayedFired(logger, "c", "task-1", false)
	record = h.lastRecord()
	assert.Equal(t, false, record["condition_met"])

	LogDelayedError(logger, "c", "task-1", errors.New("bad"))
	record = h.lastRecord()
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "bad", record["error"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogTransactionStart(nil, false)
		LogTransactionComplete(nil, false, 0, 0, 0)
		LogTransactionError(nil, false, errors.New("x"), 0)
		LogControlRegistered(nil, "", nil)
		LogAssignmentRegistered(nil, "", nil, 0)
		LogDelayedScheduled(nil, "", "", 0)
		LogDelayedFired(nil, "", "", true)
		LogDelayedError(nil, "", "", errors.New("x"))
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5.0)
}
