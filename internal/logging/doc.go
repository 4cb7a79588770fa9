// Package logging builds the slog loggers used across whisperd.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Helpers mirror the slog attribute
// constructors so call sites stay terse, and Error normalizes nil errors.
package logging
