package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// backoffConfig controls retry pacing for transient provider failures.
// Retries live here, in the collaborator client, never in the engine.
type backoffConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultBackoff() backoffConfig {
	return backoffConfig{
		maxRetries:      2,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     4 * time.Second,
	}
}

var (
	errRateLimited = errors.New("rate limited by provider")
	errServerError = errors.New("provider server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// resilientCaller wraps one provider's HTTP calls with retries, exponential
// backoff, and a circuit breaker, so a flapping provider degrades fast
// instead of stalling the whole acquisition.
type resilientCaller struct {
	client  *http.Client
	backoff backoffConfig
	breaker *gobreaker.CircuitBreaker
}

func newResilientCaller(name string, client *http.Client) *resilientCaller {
	return &resilientCaller{
		client:  client,
		backoff: defaultBackoff(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// do executes the request, retrying rate limits and server errors. A 2xx
// response is returned with its body unread; any other outcome is an error.
func (r *resilientCaller) do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := r.breaker.Execute(func() (interface{}, error) {
			resp, execErr := r.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				_ = resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				_ = resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
			return resp, nil
		})

		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if !retryable(err) || attempt >= r.backoff.maxRetries {
			return nil, lastErr
		}

		delay := r.backoff.initialInterval << uint(attempt)
		if r.backoff.maxInterval > 0 && delay > r.backoff.maxInterval {
			delay = r.backoff.maxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func retryable(err error) bool {
	return errors.Is(err, errRateLimited) || errors.Is(err, errServerError)
}
