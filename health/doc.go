// Package health reports whether an upstream API and the client's
// supporting stores are usable.
//
// A Checker reports a Result with one of three statuses: Healthy, Degraded
// or Unhealthy. EndpointChecker probes an API endpoint through the request
// client; StoreChecker round-trips a probe entry through a response cache.
//
//	agg := health.NewAggregator()
//	agg.Register("upstream", health.NewEndpointChecker("upstream", c, "/status"))
//	agg.Register("cache", health.NewStoreChecker("cache", store))
//
//	report := agg.Report(ctx)
//	if report.Status == health.StatusUnhealthy {
//		// stop routing traffic
//	}
//
// # HTTP Endpoints
//
// Routes mounts the probes on a chi router:
//
//	GET /healthz          liveness, always OK
//	GET /readyz           OK, DEGRADED or UNHEALTHY (503)
//	GET /health           JSON detail of every check
//	GET /health/{name}    JSON detail of one check
package health
