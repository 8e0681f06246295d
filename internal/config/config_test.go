package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dashcam/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Recording.MinimumFreeSpaceMB != 1024 {
		t.Fatalf("minimum free space = %d, want 1024", cfg.Recording.MinimumFreeSpaceMB)
	}
	if cfg.Recording.OutOfSpaceAction != config.OutOfSpaceActionStop {
		t.Fatalf("out of space action = %q, want stop", cfg.Recording.OutOfSpaceAction)
	}
	if cfg.MAVLink.ReconnectDelaySeconds != 1 {
		t.Fatalf("reconnect delay = %d, want 1", cfg.MAVLink.ReconnectDelaySeconds)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
video_dir = "` + filepath.Join(dir, "videos") + `"
flight_log_dir = "` + filepath.Join(dir, "logs") + `"

[recording]
out_of_space_action = "Delete_Oldest"
minimum_free_space_mb = 2048

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Recording.OutOfSpaceAction != config.OutOfSpaceActionDeleteOldest {
		t.Fatalf("action = %q, want delete_oldest", cfg.Recording.OutOfSpaceAction)
	}
	if cfg.Recording.MinimumFreeSpaceMB != 2048 {
		t.Fatalf("minimum free space = %d, want 2048", cfg.Recording.MinimumFreeSpaceMB)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.Logging.Level)
	}
	if !filepath.IsAbs(cfg.Paths.VideoDir) {
		t.Fatalf("video dir not absolute: %q", cfg.Paths.VideoDir)
	}
}

func TestValidateRejectsBadAction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[recording]
out_of_space_action = "panic"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for bad out_of_space_action")
	} else if !strings.Contains(err.Error(), "out_of_space_action") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadMAVLinkScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[mavlink]
url = "http://blueos.internal:6040/mavlink"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for non-websocket mavlink url")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	expanded, err := config.ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if expanded != filepath.Join(home, "videos") {
		t.Fatalf("expanded = %q, want under %q", expanded, home)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[recording]") {
		t.Fatal("sample config missing [recording] section")
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if cfg.Recording.VerifyChecks != 10 {
		t.Fatalf("verify checks = %d, want 10", cfg.Recording.VerifyChecks)
	}
}
