// Package config loads encodegate settings from TOML, an optional .env file,
// and environment fallbacks.
//
// Load applies Default, decodes the file, runs normalize (env fallbacks, path
// expansion, trimming) and finally Validate. Validation messages name the
// offending key as "section.key must ..." so operators can fix the file
// directly.
package config
