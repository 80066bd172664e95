package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonwraymond/reqclient/client"
)

// Getter is the part of *client.Client an EndpointChecker needs.
type Getter interface {
	Get(ctx context.Context, endpoint string, opts ...client.RequestOption) (json.RawMessage, error)
}

// EndpointChecker probes an API endpoint with a single uncached GET.
//
// A 2xx answer is healthy. A 4xx answer means the API is up but refuses the
// probe, which is reported as degraded. Anything else is unhealthy.
type EndpointChecker struct {
	name     string
	getter   Getter
	endpoint string
}

// NewEndpointChecker creates a checker that GETs endpoint through g.
func NewEndpointChecker(name string, g Getter, endpoint string) *EndpointChecker {
	return &EndpointChecker{name: name, getter: g, endpoint: endpoint}
}

// Name returns the name of this checker.
func (c *EndpointChecker) Name() string {
	return c.name
}

// Check performs the probe.
func (c *EndpointChecker) Check(ctx context.Context) Result {
	_, err := c.getter.Get(ctx, c.endpoint, client.NoCache(), client.WithRequestRetries(0))
	if err == nil {
		return Healthy(fmt.Sprintf("GET %s ok", c.endpoint)).
			WithDetails(map[string]any{"endpoint": c.endpoint})
	}

	details := map[string]any{"endpoint": c.endpoint}
	e, ok := client.AsError(err)
	if !ok {
		return Unhealthy(err.Error(), err).WithDetails(details)
	}

	details["kind"] = string(e.Kind)
	if e.Status != 0 {
		details["status"] = e.Status
	}
	if e.Kind == client.KindClient {
		return Degraded(fmt.Sprintf("GET %s answered %d %s", c.endpoint, e.Status, http.StatusText(e.Status))).
			WithDetails(details)
	}
	return Unhealthy(e.Message, fmt.Errorf("%w: %w", ErrCheckFailed, err)).WithDetails(details)
}
