// Package logging builds slog loggers with the console and JSON handlers
// used across the daemon, plus small attr helpers so call sites stay terse.
package logging
