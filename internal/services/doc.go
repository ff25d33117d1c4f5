// Package services defines shared utilities consumed by the admission,
// provisioning, and maintenance components.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers and target
//     image names for logging.
//   - Structured error markers plus the Wrap helper. Callers classify failures
//     with errors.Is so that user-correctable rejections (schema,
//     compatibility) never get confused with infrastructure outages (runtime
//     unavailable, provision, reap).
//
// Use these helpers when wiring new components so operational behaviour (error
// classification, status mapping, observability) stays uniform.
package services
