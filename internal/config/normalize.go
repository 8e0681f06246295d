package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMAVLink()
	c.normalizeRecording()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.VideoDir) == "" {
		c.Paths.VideoDir = defaultVideoDir
	}
	if c.Paths.VideoDir, err = expandPath(c.Paths.VideoDir); err != nil {
		return fmt.Errorf("paths.video_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FlightLogDir) == "" {
		c.Paths.FlightLogDir = defaultFlightLogDir
	}
	if c.Paths.FlightLogDir, err = expandPath(c.Paths.FlightLogDir); err != nil {
		return fmt.Errorf("paths.flight_log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SettingsPath) == "" {
		c.Paths.SettingsPath = defaultSettingsPath
	}
	if c.Paths.SettingsPath, err = expandPath(c.Paths.SettingsPath); err != nil {
		return fmt.Errorf("paths.settings_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeMAVLink() {
	c.MAVLink.URL = strings.TrimSpace(c.MAVLink.URL)
	if c.MAVLink.URL == "" {
		c.MAVLink.URL = defaultMAVLinkURL
	}
	if c.MAVLink.ReconnectDelaySeconds <= 0 {
		c.MAVLink.ReconnectDelaySeconds = defaultReconnectDelaySeconds
	}
	c.MAVLink.CatalogURL = strings.TrimSpace(c.MAVLink.CatalogURL)
	if c.MAVLink.CatalogTimeoutSeconds <= 0 {
		c.MAVLink.CatalogTimeoutSeconds = defaultCatalogTimeoutSeconds
	}
}

func (c *Config) normalizeRecording() {
	c.Recording.OutOfSpaceAction = strings.ToLower(strings.TrimSpace(c.Recording.OutOfSpaceAction))
	if c.Recording.OutOfSpaceAction == "" {
		c.Recording.OutOfSpaceAction = defaultOutOfSpaceAction
	}
	if c.Recording.MinimumFreeSpaceMB <= 0 {
		c.Recording.MinimumFreeSpaceMB = defaultMinimumFreeSpaceMB
	}
	if c.Recording.SegmentSeconds <= 0 {
		c.Recording.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Recording.VerifyGraceSeconds <= 0 {
		c.Recording.VerifyGraceSeconds = defaultVerifyGraceSeconds
	}
	if c.Recording.VerifyChecks <= 0 {
		c.Recording.VerifyChecks = defaultVerifyChecks
	}
	if c.Recording.VerifyIntervalSeconds <= 0 {
		c.Recording.VerifyIntervalSeconds = defaultVerifyIntervalSeconds
	}
	if c.Recording.StopTimeoutSeconds <= 0 {
		c.Recording.StopTimeoutSeconds = defaultStopTimeoutSeconds
	}
	if c.Recording.RemediationAttempts <= 0 {
		c.Recording.RemediationAttempts = defaultRemediationAttempts
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
