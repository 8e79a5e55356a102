package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// retryTransport retries idempotent requests on network errors and 5xx responses
// with exponential backoff. Rate-limit responses are passed through untouched.
type retryTransport struct {
	next           http.RoundTripper
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *logrus.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.next.RoundTrip(req)
	}

	backoff := t.initialBackoff
	for attempt := 0; ; attempt++ {
		resp, err := t.next.RoundTrip(req)
		if !shouldRetry(resp, err) || attempt >= t.maxRetries {
			return resp, err
		}

		fields := logrus.Fields{
			"attempt": attempt + 1,
			"url":     req.URL.Path,
			"backoff": backoff,
		}
		if resp != nil {
			fields["status"] = resp.StatusCode
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		t.logger.WithFields(fields).WithError(err).Warn("Request failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > t.maxBackoff {
			backoff = t.maxBackoff
		}
	}
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode >= http.StatusInternalServerError
}
