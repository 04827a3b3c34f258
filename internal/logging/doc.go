// Package logging assembles the structured slog loggers used by the resolver,
// the cache store, and the CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// attribute helpers that give every WARN line the same cause, impact, and hint
// shape. A no-op logger is provided for tests and for wiring code that must not
// fail when no logger was supplied.
package logging
