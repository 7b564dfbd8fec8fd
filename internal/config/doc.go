// Package config loads, normalizes, and validates tosho configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates delivery/email settings. The
// Config type centralizes every knob the CLI and check cycle need, so
// download directories, SMTP credentials, and fallback tuning are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
