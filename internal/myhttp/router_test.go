package myhttp_test

import (
	"bytes"
	"image-compare/internal/myhttp"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func newTestMux(t *testing.T, buffer *bytes.Buffer) interface {
	http.Handler
	HandleFuncWithMiddleware(string, http.HandlerFunc)
} {
	t.Helper()
	histogram, err := noop.NewMeterProvider().Meter("test").Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return myhttp.NewServerMux(slog.New(slog.NewJSONHandler(buffer, nil)), histogram)
}

func TestMiddleware(t *testing.T) {
	t.Run("ContextLogger", func(t *testing.T) {
		var buffer bytes.Buffer
		mux := newTestMux(t, &buffer)
		mux.HandleFuncWithMiddleware("GET /hello", func(w http.ResponseWriter, r *http.Request) {
			myhttp.Logger(r.Context()).Info("hello")
			w.WriteHeader(http.StatusNoContent)
		})

		recorder := httptest.NewRecorder()
		mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/hello", nil))

		if recorder.Code != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", recorder.Code)
		}
		if !strings.Contains(buffer.String(), `"traceid"`) {
			t.Errorf("Expected request logger to carry trace ids, got %s", buffer.String())
		}
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		var buffer bytes.Buffer
		mux := newTestMux(t, &buffer)
		mux.HandleFuncWithMiddleware("GET /panic", func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler.Error())
		})
		mux.HandleFuncWithMiddleware("GET /panic-error", func(w http.ResponseWriter, r *http.Request) {
			panic(bytes.ErrTooLarge)
		})

		for _, path := range []string{"/panic", "/panic-error"} {
			recorder := httptest.NewRecorder()
			mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
			if recorder.Code != http.StatusInternalServerError {
				t.Errorf("Expected 500 for %s, got %d", path, recorder.Code)
			}
		}
		if !strings.Contains(buffer.String(), "too large") {
			t.Errorf("Expected panic value to be logged, got %s", buffer.String())
		}
	})
}

func TestLogger_Default(t *testing.T) {
	if myhttp.Logger(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != slog.Default() {
		t.Errorf("Expected slog.Default outside of the middleware")
	}
}
