package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
	args     [][]any
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.messages = append(l.messages, msg)
	l.args = append(l.args, args)
}

func TestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	argValue := func(args []any, key string) any {
		for i := 0; i+1 < len(args); i += 2 {
			if args[i] == key {
				return args[i+1]
			}
		}
		return nil
	}

	t.Run("logs method, uri and status", func(t *testing.T) {
		l := &recordingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("nope"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pay", nil))

		require.Len(t, l.messages, 1)
		require.Equal(t, "got HTTP request", l.messages[0])

		args := l.args[0]
		require.Equal(t, http.MethodPost, argValue(args, "method"))
		require.Equal(t, "/pay", argValue(args, "uri"))
		require.Equal(t, http.StatusBadRequest, argValue(args, "status"))
		require.Equal(t, len("nope"), argValue(args, "size"))
	})

	t.Run("implicit 200 recorded", func(t *testing.T) {
		l := &recordingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, argValue(l.args[0], "status"))
	})
}
