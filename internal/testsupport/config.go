// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"dashcam/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timings short enough for tests. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.VideoDir = filepath.Join(base, "videos")
	cfg.Paths.FlightLogDir = filepath.Join(base, "flightlogs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SettingsPath = filepath.Join(base, "settings.json")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Recording.VerifyGraceSeconds = 0
	cfg.Recording.VerifyChecks = 5
	cfg.Recording.VerifyIntervalSeconds = 1
	cfg.Recording.StopTimeoutSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

// WithCatalogURL points camera discovery at the given endpoint.
func WithCatalogURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.MAVLink.CatalogURL = url
	}
}
