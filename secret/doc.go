// Package secret resolves credentials referenced from configuration.
//
// A configuration value is first expanded against the environment (see
// ExpandEnvStrict) and then scanned for secret references:
//
//	secretref:<provider>:<ref>
//
// A reference may be the whole value or appear inline:
//
//	REQCLIENT_TOKEN=secretref:file:api-token
//	REQCLIENT_TOKEN="Bearer secretref:env:UPSTREAM_TOKEN"
//
// Two providers ship with the package. EnvProvider reads environment
// variables and FileProvider reads files below a base directory, which is
// how mounted Kubernetes or Docker secrets are usually exposed. Providers
// are constructed by name through a Registry.
package secret
