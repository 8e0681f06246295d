// Package mavlink subscribes to the MAVLink2Rest heartbeat stream and turns
// raw HEARTBEAT messages into armed/disarmed transitions. Only heartbeats
// from recognized autopilot and vehicle combinations are considered; GCS and
// companion-computer heartbeats on the same link are ignored.
package mavlink
