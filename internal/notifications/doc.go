// Package notifications delivers push notifications about vehicle and
// recording events through ntfy. With no topic configured the service is a
// silent noop, so callers never need to guard their notification calls.
package notifications
