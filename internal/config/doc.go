// Package config loads, normalizes, and validates whisperd configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// WHISPERD_MAX_CONCURRENT. The Config type centralizes every knob the daemon
// and CLI need, so work directories, throttle limits, and transcriber settings
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
