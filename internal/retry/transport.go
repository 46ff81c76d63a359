package retry

import (
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

// Transport retries requests against Base according to Backoff and
// Condition. Requests with a body must set GetBody to be retried.
type Transport struct {
	Base      http.RoundTripper
	Backoff   Backoff
	Condition *Condition
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	for attempt := uint(0); ; attempt++ {
		current := request
		if attempt > 0 {
			var err error
			if current, err = rewind(request); err != nil {
				return nil, err
			}
		}

		response, err := t.base().RoundTrip(current)

		delay, exhausted := t.backoff().Delay(attempt)
		if exhausted || t.Condition == nil || !replayable(request) {
			return response, err
		}
		if err != nil {
			if !t.Condition.ShouldRetryError(err) {
				return nil, err
			}
		} else {
			if !t.Condition.ShouldRetryResponse(response) {
				return response, nil
			}
			_, _ = io.Copy(io.Discard, response.Body)
			_ = response.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func replayable(request *http.Request) bool {
	return request.Body == nil || request.Body == http.NoBody || request.GetBody != nil
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backoff() Backoff {
	if t.Backoff != nil {
		return t.Backoff
	}
	return NoRetry
}
