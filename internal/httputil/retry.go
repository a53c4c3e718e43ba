// Package httputil provides HTTP helpers shared by the provider clients.
package httputil

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const maxDelay = 30 * time.Second

// DoWithRetry executes an HTTP request with automatic retry on transient
// failures (429 Too Many Requests, 503 Service Unavailable and network
// errors). The request is cloned on each attempt, so it is safe for
// body-less requests (GET, HEAD).
//
// Backoff doubles on each attempt, starting at 500 ms, capped at 30 s.
// A Retry-After header (in seconds) is honoured when present.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	delay := 500 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if attempt == maxRetries {
				return nil, err
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = capDelay(delay * 2)
			continue
		}

		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			return resp, nil
		}

		resp.Body.Close()
		if attempt == maxRetries {
			return nil, fmt.Errorf("HTTP %d após %d tentativas: %s", resp.StatusCode, maxRetries, req.URL)
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				delay = time.Duration(secs) * time.Second
			}
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = capDelay(delay * 2)
	}

	return nil, fmt.Errorf("max retries exceeded: %s", req.URL)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func capDelay(d time.Duration) time.Duration {
	if d > maxDelay {
		return maxDelay
	}
	return d
}
