// Package settings persists the mutable service state the web layer edits:
// configured camera streams and the storage policy. The orchestrator only
// reads snapshots from it; writes go through the explicit update APIs.
package settings
