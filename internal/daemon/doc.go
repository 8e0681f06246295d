// Package daemon coordinates the long-running dashcam process and system
// integration points.
//
// It wires configuration, the settings store, recording history, the
// orchestrator, and the MAVLink telemetry client into a single lifecycle with
// flock-based locking to prevent multiple instances, and serves the HTTP API
// the web UI and BlueOS service registration use.
//
// Keep orchestration logic in the orchestrator: the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
