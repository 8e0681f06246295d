package config

const (
	defaultVideoDir     = "~/videos"
	defaultFlightLogDir = "~/logs"
	defaultLogDir       = "~/.local/share/dashcam/logs"
	defaultSettingsPath = "~/.config/dashcam/settings.json"
	defaultAPIBind      = "0.0.0.0:8080"

	defaultMAVLinkURL            = "ws://blueos.internal:6040/mavlink/ws/mavlink?filter=HEARTBEAT"
	defaultReconnectDelaySeconds = 1
	defaultCatalogTimeoutSeconds = 5

	defaultMinimumFreeSpaceMB    = 1024
	defaultOutOfSpaceAction      = "stop"
	defaultSegmentSeconds        = 3600
	defaultVerifyGraceSeconds    = 3
	defaultVerifyChecks          = 10
	defaultVerifyIntervalSeconds = 3
	defaultStopTimeoutSeconds    = 5
	defaultRemediationAttempts   = 10

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			VideoDir:     defaultVideoDir,
			FlightLogDir: defaultFlightLogDir,
			LogDir:       defaultLogDir,
			SettingsPath: defaultSettingsPath,
			APIBind:      defaultAPIBind,
		},
		MAVLink: MAVLink{
			URL:                   defaultMAVLinkURL,
			ReconnectDelaySeconds: defaultReconnectDelaySeconds,
			CatalogTimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		Recording: Recording{
			MinimumFreeSpaceMB:    defaultMinimumFreeSpaceMB,
			OutOfSpaceAction:      defaultOutOfSpaceAction,
			SegmentSeconds:        defaultSegmentSeconds,
			VerifyGraceSeconds:    defaultVerifyGraceSeconds,
			VerifyChecks:          defaultVerifyChecks,
			VerifyIntervalSeconds: defaultVerifyIntervalSeconds,
			StopTimeoutSeconds:    defaultStopTimeoutSeconds,
			RemediationAttempts:   defaultRemediationAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Arm:            true,
			Disarm:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
