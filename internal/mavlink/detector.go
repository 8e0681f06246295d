package mavlink

import (
	"log/slog"

	"dashcam/internal/logging"
)

// ArmEvents receives edge-triggered vehicle state transitions. Callbacks run
// on the websocket read goroutine, so implementations must not block on the
// MAVLink stream.
type ArmEvents interface {
	VehicleArmed()
	VehicleDisarmed()
}

// Detector tracks the last observed arm state and fires ArmEvents callbacks
// only on transitions. Repeated heartbeats in the same state are silent.
type Detector struct {
	logger *slog.Logger
	events ArmEvents
	armed  bool
}

// NewDetector returns a detector that starts in the disarmed state.
func NewDetector(logger *slog.Logger, events ArmEvents) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{
		logger: logging.NewComponentLogger(logger, "mavlink"),
		events: events,
	}
}

// Observe feeds one heartbeat into the detector. Heartbeats from unrecognized
// sources are ignored entirely and do not reset the tracked state.
func (d *Detector) Observe(hb Heartbeat) {
	if !hb.FromVehicle() {
		return
	}
	armed := hb.Armed()
	if armed == d.armed {
		return
	}
	d.armed = armed
	if armed {
		d.logger.Info("vehicle armed",
			logging.String("autopilot", hb.Autopilot),
			logging.String("vehicle_type", hb.VehicleType))
		if d.events != nil {
			d.events.VehicleArmed()
		}
		return
	}
	d.logger.Info("vehicle disarmed",
		logging.String("autopilot", hb.Autopilot),
		logging.String("vehicle_type", hb.VehicleType))
	if d.events != nil {
		d.events.VehicleDisarmed()
	}
}

// Armed reports the detector's current view of the vehicle state.
func (d *Detector) Armed() bool {
	return d.armed
}
