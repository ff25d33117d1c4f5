// Package metrics declares the Prometheus collectors exported on /metrics.
//
// Collectors are package-level and registered with the default registry at
// init through promauto. Components update them directly; the HTTP layer
// records request counters through Middleware.
package metrics
