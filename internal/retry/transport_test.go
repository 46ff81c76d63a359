package retry_test

import (
	"context"
	"image-compare/internal/retry"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(request *http.Request) (*http.Response, error) {
	return f(request)
}

type temporaryError struct{}

func (temporaryError) Error() string   { return "temporary" }
func (temporaryError) Temporary() bool { return true }

func fastBackoff(attempts uint) retry.Backoff {
	return &retry.Exponential{Base: time.Millisecond, Max: 5 * time.Millisecond, Attempts: attempts}
}

func TestTransport_RoundTrip(t *testing.T) {
	t.Run("RetriesGatewayErrorsWithBody", func(t *testing.T) {
		var calls atomic.Int32
		var mu sync.Mutex
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies = append(bodies, string(body))
			mu.Unlock()
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := &http.Client{Transport: &retry.Transport{Backoff: fastBackoff(5), Condition: retry.DefaultCondition()}}
		response, err := client.Post(server.URL, "text/plain", strings.NewReader("payload"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", response.StatusCode)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("Expected 3 calls, got %d", got)
		}
		mu.Lock()
		defer mu.Unlock()
		for i, body := range bodies {
			if body != "payload" {
				t.Errorf("Expected body to be replayed on call %d, got %q", i, body)
			}
		}
	})

	t.Run("StopsWhenExhausted", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := &http.Client{Transport: &retry.Transport{Backoff: fastBackoff(2), Condition: retry.DefaultCondition()}}
		response, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		defer response.Body.Close()

		if response.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", response.StatusCode)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("Expected 3 calls, got %d", got)
		}
	})

	t.Run("DoesNotRetryInternalServerError", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := &http.Client{Transport: &retry.Transport{Backoff: fastBackoff(5), Condition: retry.DefaultCondition()}}
		response, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		defer response.Body.Close()

		if got := calls.Load(); got != 1 {
			t.Errorf("Expected 1 call, got %d", got)
		}
	})

	t.Run("RetriesTemporaryErrors", func(t *testing.T) {
		var calls atomic.Int32
		transport := &retry.Transport{
			Base: roundTripperFunc(func(request *http.Request) (*http.Response, error) {
				if calls.Add(1) == 1 {
					return nil, temporaryError{}
				}
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			}),
			Backoff:   fastBackoff(3),
			Condition: retry.DefaultCondition(),
		}

		request, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
		response, err := transport.RoundTrip(request)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if response.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", response.StatusCode)
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("Expected 2 calls, got %d", got)
		}
	})

	t.Run("NonReplayableBodyIsSentOnce", func(t *testing.T) {
		var calls atomic.Int32
		transport := &retry.Transport{
			Base: roundTripperFunc(func(request *http.Request) (*http.Response, error) {
				calls.Add(1)
				return &http.Response{StatusCode: http.StatusBadGateway, Body: http.NoBody}, nil
			}),
			Backoff:   fastBackoff(3),
			Condition: retry.DefaultCondition(),
		}

		request, _ := http.NewRequest(http.MethodPost, "http://example.invalid", io.NopCloser(strings.NewReader("x")))
		response, err := transport.RoundTrip(request)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if response.StatusCode != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", response.StatusCode)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("Expected 1 call, got %d", got)
		}
	})

	t.Run("ContextCanceledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		transport := &retry.Transport{
			Base: roundTripperFunc(func(request *http.Request) (*http.Response, error) {
				cancel()
				return &http.Response{StatusCode: http.StatusBadGateway, Body: http.NoBody}, nil
			}),
			Backoff:   &retry.Exponential{Base: time.Hour, Max: time.Hour, Attempts: 3, Jitter: func(n int64) int64 { return n }},
			Condition: retry.DefaultCondition(),
		}

		request, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
		if _, err := transport.RoundTrip(request); err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
