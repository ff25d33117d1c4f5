// Package api exposes the admission and runtime maintenance operations over
// HTTP.
//
// # Routes
//
// POST /v1/jobs/validate: admission verdict only.
//
// POST /v1/jobs: admission followed by hand-off to the dispatch publisher.
//
// POST /v1/images/ensure: worker image provisioning.
//
// POST /v1/containers/cleanup: prefix-scoped container reaping.
//
// GET /v1/engine/health, /readyz, /healthz and /metrics serve health checks and
// Prometheus scrapes.
//
// # Design Notes
//
// Status codes come from services.HTTPStatus so that every component reports
// engine loss as 503 and caller mistakes as 400. Handlers depend on small
// interfaces rather than concrete components; tests substitute fakes.
//
// JSON payloads use camelCase keys. Every response carries an X-Request-ID
// header, either echoed from the request or freshly generated.
package api
