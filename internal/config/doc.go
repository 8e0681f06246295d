// Package config loads and validates the daemon configuration.
//
// Static configuration lives in a TOML file (paths, MAVLink endpoint,
// recording timing knobs, notifications, logging). Mutable state that the
// web layer edits at runtime (camera streams, space policy) lives in the
// settings store instead; see package settings.
package config
