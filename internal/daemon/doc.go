// Package daemon coordinates the long-running encodegate process.
//
// It wires configuration, the container engine gateway, the image
// provisioner, the reaper, the health checker and the optional dispatch
// publisher into a single lifecycle with flock-based locking to prevent
// multiple instances. Startup is gated on a reachable container engine. The
// daemon serves the HTTP API, optionally prewarms the worker image and runs
// a periodic cleanup of stale worker containers.
//
// Keep orchestration logic here: admission rules and engine operations live
// in their respective packages while the daemon focuses on startup, shutdown
// and scheduling.
package daemon
