// ApiBridgePro is a reverse-proxy API gateway for third-party HTTP APIs.
//
// It fronts a set of configured connectors, each backed by one or more
// upstream providers, and adds the operational layer the upstreams lack:
//   - Health-aware provider selection with circuit breaking and failover
//   - Per-connector rate limiting and response caching
//   - Monthly budget ceilings with block or provider-downgrade enforcement
//   - Credential injection (API keys, bearer tokens, OAuth2)
//   - JMESPath response transforms and schema drift detection
//
// Usage:
//
//	# Start the gateway with the default configuration file
//	apibridge run
//
//	# Start with a custom configuration
//	apibridge run --config /etc/apibridge/config.yaml
//
//	# Validate a configuration file without starting
//	apibridge validate --config config.yaml
//
//	# Show version information
//	apibridge version
package main

func main() {
	Execute()
}
