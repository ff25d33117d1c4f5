// Package health reports whether the container engine is usable.
//
// CheckConnection is the observational check used for startup gating and
// dashboards. Readiness runs a short list of named checks in the style of a
// preflight: the engine answers, the local engine socket is accessible, the
// state directory is writable and the worker image is present. Checks never
// mutate engine state.
package health
