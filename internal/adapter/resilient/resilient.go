// Package resilient wraps outbound provider calls in a circuit breaker.
// There is deliberately no retry loop: a failed provider degrades to the next
// fallback in its chain (or to absent data) instead of being retried, so the
// breaker exists only to fail fast while an upstream is misbehaving.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// NewBreaker builds a circuit breaker for one upstream provider.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// Do executes one HTTP request through the breaker. On a 2xx response the
// body is returned open for the caller to decode and close. Any other status
// is converted to an error (carrying a snippet of the body) and counted
// against the breaker.
func Do(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: status %d: %s", errRateLimited, resp.StatusCode, snippet)
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d: %s", errServerError, resp.StatusCode, snippet)
		default:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	return result.(*http.Response), nil
}
