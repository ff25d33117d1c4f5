// Package admission decides whether a transcoding job request may enter the
// system.
//
// Validation runs in two steps. Schema validation checks every field against
// its type, enumeration, or range in a fixed field order and reports the first
// offending field. Compatibility validation runs only when the schema passes
// and evaluates an ordered table of cross-field rules, stopping at the first
// violation. Both steps are pure: a Validator holds an immutable rule table and
// is safe for unbounded concurrent use.
//
// Rejections are returned as *Rejection values that wrap services.ErrSchema or
// services.ErrCompatibility, so HTTP and CLI layers can classify them with
// errors.Is and surface the message verbatim.
package admission
