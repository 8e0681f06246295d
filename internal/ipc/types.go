package ipc

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ActiveStream describes one in-flight recording.
type ActiveStream struct {
	Stream       string `json:"stream"`
	State        string `json:"state"`
	OutputPrefix string `json:"output_prefix"`
	StartedAt    string `json:"started_at"`
}

// StatusResponse represents combined daemon and recording status information.
type StatusResponse struct {
	Running            bool           `json:"running"`
	Armed              bool           `json:"armed"`
	BaseFilename       string         `json:"base_filename"`
	ActiveStreams      []ActiveStream `json:"active_streams"`
	FreeSpaceMB        int64          `json:"free_space_mb"`
	MinimumFreeSpaceMB int64          `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string         `json:"out_of_space_action"`
	HistoryDBPath      string         `json:"history_db_path"`
	SettingsPath       string         `json:"settings_path"`
	LockPath           string         `json:"lock_path"`
}

// Stream describes one configured camera stream.
type Stream struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// StreamListRequest fetches configured streams.
type StreamListRequest struct{}

// StreamListResponse contains configured streams in registry order.
type StreamListResponse struct {
	Streams []Stream `json:"streams"`
}

// StreamAddRequest adds or updates a stream.
type StreamAddRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StreamAddResponse confirms the stream was stored.
type StreamAddResponse struct {
	Stream Stream `json:"stream"`
}

// StreamEnableRequest toggles a stream.
type StreamEnableRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// StreamEnableResponse confirms the toggle.
type StreamEnableResponse struct {
	Stream Stream `json:"stream"`
}

// StreamRemoveRequest deletes a stream.
type StreamRemoveRequest struct {
	Name string `json:"name"`
}

// StreamRemoveResponse reports whether the stream existed.
type StreamRemoveResponse struct {
	Removed bool `json:"removed"`
}

// SettingsRequest fetches the storage policy.
type SettingsRequest struct{}

// SettingsResponse carries the storage policy.
type SettingsResponse struct {
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
	SegmentSeconds     int    `json:"segment_seconds"`
}

// SettingsUpdateRequest replaces the storage policy.
type SettingsUpdateRequest struct {
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
	SegmentSeconds     int    `json:"segment_seconds"`
}

// SettingsUpdateResponse echoes the applied policy.
type SettingsUpdateResponse struct {
	Settings SettingsResponse `json:"settings"`
}

// Session summarizes one armed-to-disarmed recording session.
type Session struct {
	ID           string `json:"id"`
	BaseFilename string `json:"base_filename"`
	ArmedAt      string `json:"armed_at"`
	DisarmedAt   string `json:"disarmed_at,omitempty"`
	Recordings   int    `json:"recordings"`
}

// SessionListRequest fetches recent sessions.
type SessionListRequest struct {
	Limit int `json:"limit"`
}

// SessionListResponse contains sessions, newest first.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// Recording describes one per-stream recording within a session.
type Recording struct {
	Stream       string `json:"stream"`
	OutputPrefix string `json:"output_prefix"`
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
}

// SessionRecordingsRequest fetches the recordings of one session.
type SessionRecordingsRequest struct {
	SessionID string `json:"session_id"`
}

// SessionRecordingsResponse contains the session's recordings.
type SessionRecordingsResponse struct {
	Recordings []Recording `json:"recordings"`
}

// DiskSpaceRequest fetches free space and the storage policy.
type DiskSpaceRequest struct{}

// DiskSpaceResponse reports free space in the video directory.
type DiskSpaceResponse struct {
	FreeMB             int64  `json:"free_mb"`
	MinimumFreeSpaceMB int64  `json:"minimum_free_space_mb"`
	OutOfSpaceAction   string `json:"out_of_space_action"`
}

// DeleteOldestRequest removes the oldest completed recording.
type DeleteOldestRequest struct{}

// DeleteOldestResponse reports the removed path, empty when nothing existed.
type DeleteOldestResponse struct {
	Deleted string `json:"deleted"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
