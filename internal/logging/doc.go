// Package logging assembles structured slog loggers and formatting helpers used
// across encodegate.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers can tag log
// lines with correlation IDs and target images. The "auto" format picks the
// console handler when stderr is a terminal and JSON otherwise.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
