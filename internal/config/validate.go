package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// OutOfSpaceActionStop stops all active recordings to free writers.
const OutOfSpaceActionStop = "stop"

// OutOfSpaceActionDeleteOldest deletes the oldest completed video file.
const OutOfSpaceActionDeleteOldest = "delete_oldest"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMAVLink(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.VideoDir == "" {
		return errors.New("paths.video_dir must be set")
	}
	if c.Paths.FlightLogDir == "" {
		return errors.New("paths.flight_log_dir must be set")
	}
	return nil
}

func (c *Config) validateMAVLink() error {
	parsed, err := url.Parse(c.MAVLink.URL)
	if err != nil {
		return fmt.Errorf("mavlink.url: %w", err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("mavlink.url must use ws or wss scheme, got %q", parsed.Scheme)
	}
	if c.MAVLink.CatalogURL != "" {
		catalog, err := url.Parse(c.MAVLink.CatalogURL)
		if err != nil {
			return fmt.Errorf("mavlink.catalog_url: %w", err)
		}
		if catalog.Scheme != "http" && catalog.Scheme != "https" {
			return fmt.Errorf("mavlink.catalog_url must use http or https scheme, got %q", catalog.Scheme)
		}
	}
	return nil
}

func (c *Config) validateRecording() error {
	switch c.Recording.OutOfSpaceAction {
	case OutOfSpaceActionStop, OutOfSpaceActionDeleteOldest:
	default:
		return fmt.Errorf("recording.out_of_space_action must be %q or %q, got %q",
			OutOfSpaceActionStop, OutOfSpaceActionDeleteOldest, c.Recording.OutOfSpaceAction)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
