package mavlink

import (
	"encoding/json"
	"fmt"
)

// baseModeArmedFlag is MAV_MODE_FLAG_SAFETY_ARMED, bit 7 of base_mode.
const baseModeArmedFlag = 1 << 7

const messageTypeHeartbeat = "HEARTBEAT"

// Autopilots whose heartbeats represent the vehicle itself.
var recognizedAutopilots = map[string]struct{}{
	"MAV_AUTOPILOT_GENERIC":       {},
	"MAV_AUTOPILOT_ARDUPILOTMEGA": {},
	"MAV_AUTOPILOT_PX4":           {},
}

var recognizedVehicleTypes = map[string]struct{}{
	"MAV_TYPE_FIXED_WING":   {},
	"MAV_TYPE_QUADROTOR":    {},
	"MAV_TYPE_HELICOPTER":   {},
	"MAV_TYPE_GROUND_ROVER": {},
	"MAV_TYPE_SURFACE_BOAT": {},
	"MAV_TYPE_SUBMARINE":    {},
	"MAV_TYPE_VTOL":         {},
}

// Heartbeat is the decoded subset of a MAVLink HEARTBEAT message the daemon
// cares about.
type Heartbeat struct {
	Autopilot   string
	VehicleType string
	BaseMode    uint32
}

// Armed reports whether the safety-armed flag is set in base_mode.
func (h Heartbeat) Armed() bool {
	return h.BaseMode&baseModeArmedFlag != 0
}

// FromVehicle reports whether the heartbeat originates from a recognized
// autopilot flying a recognized vehicle type.
func (h Heartbeat) FromVehicle() bool {
	if _, ok := recognizedAutopilots[h.Autopilot]; !ok {
		return false
	}
	_, ok := recognizedVehicleTypes[h.VehicleType]
	return ok
}

// envelope mirrors the MAVLink2Rest websocket JSON framing. Enum fields are
// nested objects carrying a "type" string; bitmask fields carry "bits".
type envelope struct {
	Message struct {
		Type      string `json:"type"`
		Autopilot struct {
			Type string `json:"type"`
		} `json:"autopilot"`
		VehicleType struct {
			Type string `json:"type"`
		} `json:"mavtype"`
		BaseMode struct {
			Bits uint32 `json:"bits"`
		} `json:"base_mode"`
	} `json:"message"`
}

// ParseHeartbeat decodes one websocket frame. The second return value is
// false when the frame is valid JSON but not a HEARTBEAT message; other
// message types flow on the same filtered stream during reconnect races.
func ParseHeartbeat(data []byte) (Heartbeat, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Heartbeat{}, false, fmt.Errorf("decode mavlink frame: %w", err)
	}
	if env.Message.Type != messageTypeHeartbeat {
		return Heartbeat{}, false, nil
	}
	return Heartbeat{
		Autopilot:   env.Message.Autopilot.Type,
		VehicleType: env.Message.VehicleType.Type,
		BaseMode:    env.Message.BaseMode.Bits,
	}, true, nil
}
