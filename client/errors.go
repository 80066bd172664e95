package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/reqclient/resilience"
)

var (
	// ErrInvalidOptions indicates a configuration or per-call option failed validation.
	ErrInvalidOptions = errors.New("client: invalid options")

	// ErrDecode indicates a response payload that is not valid JSON.
	ErrDecode = errors.New("client: invalid JSON payload")
)

// Kind classifies a failure.
type Kind string

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindTimeout means the attempt deadline expired.
	KindTimeout Kind = "timeout"
	// KindClient means the server answered 400-499.
	KindClient Kind = "client"
	// KindServer means the server answered with any other non-2xx status.
	KindServer Kind = "server"
	// KindDecode means the payload could not be decoded.
	KindDecode Kind = "decode"
	// KindValidation means the call was rejected before any attempt.
	KindValidation Kind = "validation"
	// KindCanceled means the caller's context ended.
	KindCanceled Kind = "canceled"
	// KindRejected means a circuit breaker, rate limiter or bulkhead refused the call.
	KindRejected Kind = "rejected"
)

// Error is the normalized failure of a request.
type Error struct {
	Message   string    `json:"message"`
	Status    int       `json:"status,omitempty"`
	Code      string    `json:"code,omitempty"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Kind     Kind   `json:"kind"`
	Attempts int    `json:"attempts,omitempty"`
	Method   string `json:"method,omitempty"`
	URL      string `json:"url,omitempty"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	target := e.Method
	if e.URL != "" {
		target += " " + e.URL
	}
	if target != "" {
		target += ": "
	}
	if e.Status > 0 {
		return fmt.Sprintf("client: %s%d %s", target, e.Status, e.Message)
	}
	return fmt.Sprintf("client: %s%s", target, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *Error) StatusCode() int {
	return e.Status
}

// ErrorKind returns the failure class as a string.
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// Retryable reports whether another attempt could succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer, KindDecode:
		return true
	default:
		return false
	}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err is worth another attempt.
// Errors that are not *Error are treated as transport failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := AsError(err); ok {
		return e.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}

// newStatusError builds an Error from a non-2xx response. A JSON body with
// message/error/code/details fields populates the matching fields.
func newStatusError(status int, body []byte) *Error {
	e := &Error{
		Status:  status,
		Message: http.StatusText(status),
		Kind:    KindServer,
	}
	if status >= 400 && status <= 499 {
		e.Kind = KindClient
	}
	if e.Message == "" {
		e.Message = "HTTP " + strconv.Itoa(status)
	}

	if len(body) == 0 {
		return e
	}

	var wire map[string]any
	if err := json.Unmarshal(body, &wire); err != nil {
		e.Details = truncate(string(body), maxDetailBytes)
		return e
	}

	if msg, ok := wire["message"].(string); ok && msg != "" {
		e.Message = msg
	} else {
		switch v := wire["error"].(type) {
		case string:
			if v != "" {
				e.Message = v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				e.Message = msg
			}
			if e.Code == "" {
				e.Code = codeString(v["code"])
			}
		}
	}
	if code := codeString(wire["code"]); code != "" {
		e.Code = code
	}
	if details, ok := wire["details"]; ok {
		e.Details = details
	}
	return e
}

const maxDetailBytes = 1024

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func codeString(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return ""
	}
}

// classifyTransport maps a failure without an HTTP response. An ended
// parent context wins over whatever the attempt reported.
func classifyTransport(parent context.Context, err error) *Error {
	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Message: parent.Err().Error(), Err: parent.Err()}
	}
	return transportError(err)
}

// transportError maps a failure seen inside an attempt.
func transportError(err error) *Error {
	switch {
	case errors.Is(err, resilience.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "attempt timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Message: err.Error(), Err: err}
	default:
		return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
}

// classifyFinal turns whatever the executor returned into an *Error.
func classifyFinal(parent context.Context, err error) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrRateLimitExceeded),
		errors.Is(err, resilience.ErrBulkheadFull):
		return &Error{Kind: KindRejected, Message: err.Error(), Err: err}
	default:
		return classifyTransport(parent, err)
	}
}
