package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Fetch sends a GET request and decodes the payload into T. An empty
// payload yields the zero value. A payload that does not fit T fails with
// KindDecode and is not retried; the response is already final.
func Fetch[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	return decode[T](c.Get(ctx, endpoint, opts...))
}

// Send sends body with method and decodes the payload into T.
func Send[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...RequestOption) (T, error) {
	return decode[T](c.Request(ctx, endpoint, withMethod(method, body, opts)...))
}

func decode[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &Error{
			Kind:      KindDecode,
			Message:   fmt.Sprintf("cannot decode payload into %T", out),
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
			Err:       fmt.Errorf("%w: %v", ErrDecode, err),
		}
	}
	return out, nil
}
