package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json format emits parseable records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithFormat(logger.FormatJSON),
			logger.WithOutput(&buf),
		)
		log.Info("hello", slog.String("key", "value"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("text format emits key=value pairs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithFormat(logger.FormatText),
			logger.WithOutput(&buf),
		)
		log.Info("hello", slog.String("key", "value"))

		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "key=value")
	})

	t.Run("level filters lower records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithLevel(slog.LevelWarn),
			logger.WithOutput(&buf),
		)
		log.Info("dropped")
		assert.Empty(t, buf.String())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("static attributes appear on every record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("env", "test")),
		)
		log.Info("first")
		log.Info("second")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Contains(t, line, `"env":"test"`)
		}
	})

	t.Run("production preset tags the service at info level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithProduction("relaygate"),
			logger.WithOutput(&buf),
		)
		log.Debug("dropped")
		log.Info("kept")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "kept", record["msg"])
		assert.Equal(t, "relaygate", record["service"])
	})

	t.Run("development preset logs debug as text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithDevelopment("relaygate"),
			logger.WithOutput(&buf),
		)
		log.Debug("verbose")

		assert.Contains(t, buf.String(), "msg=verbose")
		assert.Contains(t, buf.String(), "service=relaygate")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New(logger.WithFormat("yaml"))
		})
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	t.Run("Error wraps a non-nil error", func(t *testing.T) {
		t.Parallel()

		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
	})

	t.Run("Error with nil is empty", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, slog.Attr{}, logger.Error(nil))
	})

	t.Run("Channel uses the channel key", func(t *testing.T) {
		t.Parallel()

		attr := logger.Channel("wecom")
		assert.Equal(t, "channel", attr.Key)
		assert.Equal(t, "wecom", attr.Value.String())
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", logger.Truncate("short", 10))
	assert.Equal(t, "exact", logger.Truncate("exact", 5))
	assert.Equal(t, "lon...", logger.Truncate("longer", 3))
	assert.Equal(t, "日本...", logger.Truncate("日本語のテキスト", 2))
	assert.Equal(t, "anything", logger.Truncate("anything", 0))
}
