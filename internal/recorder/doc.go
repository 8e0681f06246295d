// Package recorder supervises per-stream ffmpeg recording processes. Each
// stream has at most one process; the supervisor verifies that a started
// process actually produces output, stops processes gracefully with a kill
// fallback, and cleans up after unexpected exits without restarting them.
package recorder
