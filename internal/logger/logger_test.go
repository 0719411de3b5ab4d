package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	origOut := os.Stdout
	defer func() { os.Stdout = origOut }()

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")

	os.Stdout = wOut

	fn()

	err = wOut.Close()
	require.NoError(t, err, "failed to close stdout pipe")

	outBytes, err := io.ReadAll(rOut)
	require.NoError(t, err, "failed to read stdout pipe")

	return string(outBytes)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected slog.Level
		}{
			{"Debug level", "DEBUG", slog.LevelDebug},
			{"Debug level lowercase", "debug", slog.LevelDebug},
			{"Info level", "INFO", slog.LevelInfo},
			{"Info level lowercase", "info", slog.LevelInfo},
			{"Warn level", "WARN", slog.LevelWarn},
			{"Warn level lowercase", "warn", slog.LevelWarn},
			{"Error level", "ERROR", slog.LevelError},
			{"Error level lowercase", "error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.Equal(t, tt.expected, parseLevelString(tt.input))
			})
		}
	})

	t.Run("unknown value defaults to info", func(t *testing.T) {
		require.Equal(t, slog.LevelInfo, parseLevelString("verbose"))
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("prod logs JSON", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)

			l.Info("payment accepted", "checkout_request_id", "ws_CO_1")
		})

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &record), "prod output should be JSON, got: %s", out)
		require.Equal(t, "payment accepted", record["msg"])
		require.Equal(t, "ws_CO_1", record["checkout_request_id"])
	})

	t.Run("dev logs text", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvDev, LevelInfo)
			require.NoError(t, err)

			l.Info("payment accepted")
		})

		require.Contains(t, out, "payment accepted")
		require.Contains(t, out, "level=INFO")
	})

	t.Run("unknown environment rejected", func(t *testing.T) {
		_, err := New("staging", LevelInfo)

		require.Error(t, err)
	})

	t.Run("level filters messages", func(t *testing.T) {
		out := capture(t, func() {
			l := NewLogger(LevelWarn)

			l.Debug("should be dropped")
			l.Warn("should be kept")
		})

		require.NotContains(t, out, "should be dropped")
		require.Contains(t, out, "should be kept")
	})

	t.Run("with adds attributes", func(t *testing.T) {
		out := capture(t, func() {
			l := NewLogger(LevelInfo).With("component", "daraja")

			l.Info("token issued")
		})

		require.Contains(t, out, "component=daraja")
	})

	t.Run("source points at caller", func(t *testing.T) {
		out := capture(t, func() {
			NewLogger(LevelInfo).Info("hello")
		})

		require.Contains(t, out, "logger_test.go", "wrapper frames should be skipped in source info")
	})
}

func TestLogger_NoOp(t *testing.T) {
	out := capture(t, func() {
		l := NewNoOpLogger()

		l.Info("should vanish")
		l.Error("should vanish too")
	})

	require.Empty(t, out)
}
