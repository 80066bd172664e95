package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/reqclient/observe"
	"github.com/jonwraymond/reqclient/resilience"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// send runs the attempts of one logical request through the executor.
// Attempts are strictly sequential.
func (c *Client) send(ctx context.Context, meta observe.RequestMeta, ro RequestOptions, body []byte) ([]byte, error) {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  ro.Retries + 1,
		InitialDelay: c.config.RetryDelay,
		Multiplier:   2,
		Strategy:     resilience.BackoffExponential,
		RetryIf:      IsRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.mw.Retry(ctx, meta, attempt, delay)
		},
		Wait: c.wait,
	})

	exec := resilience.NewExecutor(
		resilience.WithRateLimiter(c.limiter),
		resilience.WithBulkhead(c.bulkhead),
		resilience.WithCircuitBreaker(c.breaker),
		resilience.WithRetry(retry),
	)

	var (
		attempts int
		payload  []byte
	)
	err := exec.Execute(ctx, func(ctx context.Context) error {
		attempts++

		// p is owned by this attempt; a timed-out attempt may still write
		// it after the guard returned.
		var p []byte
		err := resilience.ExecuteWithTimeout(ctx, ro.Timeout, func(actx context.Context) error {
			var err error
			p, err = c.attempt(actx, meta, ro, body)
			return err
		})
		if err != nil {
			if e, ok := AsError(err); !ok || (e.Status == 0 && ctx.Err() != nil) {
				err = classifyTransport(ctx, err)
			}
			c.mw.Attempt(ctx, meta, attempts, err)
			return err
		}

		c.mw.Attempt(ctx, meta, attempts, nil)
		payload = p
		return nil
	})
	if err != nil {
		return nil, c.annotate(classifyFinal(ctx, err), meta.Method, meta.URL, attempts)
	}
	return payload, nil
}

// attempt performs one HTTP exchange.
func (c *Client) attempt(ctx context.Context, meta observe.RequestMeta, ro RequestOptions, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, ro.Method, meta.URL, reader)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range ro.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", meta.RequestID)

	if c.auth != nil {
		if err := c.auth.Apply(ctx, req.Header); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("auth: %v", err), Err: err}
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) > 0 && !json.Valid(data) {
		return nil, &Error{
			Kind:    KindDecode,
			Status:  resp.StatusCode,
			Message: "response is not valid JSON",
			Details: truncate(string(data), maxDetailBytes),
			Err:     ErrDecode,
		}
	}
	return data, nil
}
