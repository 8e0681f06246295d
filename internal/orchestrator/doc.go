// Package orchestrator drives the recording lifecycle from vehicle arm state.
// An arm transition refreshes the stream catalog, derives the session base
// filename, and starts one recording per enabled stream behind the disk-space
// gate; a disarm transition stops everything before further telemetry is
// processed.
package orchestrator
