package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	VideoDir     string `toml:"video_dir"`
	FlightLogDir string `toml:"flight_log_dir"`
	LogDir       string `toml:"log_dir"`
	SettingsPath string `toml:"settings_path"`
	APIBind      string `toml:"api_bind"`
}

// MAVLink contains configuration for the telemetry subscription.
type MAVLink struct {
	URL                   string `toml:"url"`
	ReconnectDelaySeconds int    `toml:"reconnect_delay_seconds"`
	CatalogURL            string `toml:"catalog_url"`
	CatalogTimeoutSeconds int    `toml:"catalog_timeout_seconds"`
}

// Recording contains timing and admission knobs for the supervisor.
//
// The verification schedule and the remediation bound mirror the behavior of
// the original service: a short grace period after spawn, then a fixed number
// of evenly spaced file checks, and a fixed number of free-space remediation
// attempts before a stream is denied.
type Recording struct {
	MinimumFreeSpaceMB    int64  `toml:"minimum_free_space_mb"`
	OutOfSpaceAction      string `toml:"out_of_space_action"`
	SegmentSeconds        int    `toml:"segment_seconds"`
	VerifyGraceSeconds    int    `toml:"verify_grace_seconds"`
	VerifyChecks          int    `toml:"verify_checks"`
	VerifyIntervalSeconds int    `toml:"verify_interval_seconds"`
	StopTimeoutSeconds    int    `toml:"stop_timeout_seconds"`
	RemediationAttempts   int    `toml:"remediation_attempts"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Arm            bool   `toml:"arm"`
	Disarm         bool   `toml:"disarm"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the dashcam daemon.
//
// Configuration sections by subsystem:
//   - Paths: video/flight-log/log directories, settings file, API bind
//   - MAVLink: telemetry websocket endpoint and camera source catalog
//   - Recording: admission thresholds and supervisor timing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	MAVLink       MAVLink       `toml:"mavlink"`
	Recording     Recording     `toml:"recording"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dashcam/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dashcam.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The video directory is created on a best-effort basis so the daemon can
// start when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.FlightLogDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.SettingsPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.VideoDir) != "" {
		_ = os.MkdirAll(c.Paths.VideoDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the recording pipeline executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
