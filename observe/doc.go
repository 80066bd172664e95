// Package observe provides observability primitives for outbound requests.
//
// It is a pure instrumentation library: tracing spans per logical request,
// request/attempt/cache metrics and a zerolog-backed structured logger.
// Consumers wire a Middleware into the request client; exporter selection
// lives in the exporters subpackage.
package observe
