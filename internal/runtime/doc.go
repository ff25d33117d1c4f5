// Package runtime is the only code in encodegate that talks to the container
// engine. Everything above it (provisioning, reaping, health) depends on the
// Gateway interface so tests can substitute an in-memory engine.
//
// DockerGateway implements Gateway with the Docker Engine SDK. Every call
// reads live engine state; nothing is cached. Connection failures, whether
// at dial time or mid-call, are reported with services.ErrRuntimeUnavailable
// so callers can tell an engine outage apart from a domain failure.
package runtime
