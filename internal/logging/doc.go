// Package logging assembles the structured slog loggers used across tosho.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so subsystems tag log lines the
// same way. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
