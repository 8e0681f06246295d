package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStreamsLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"streams", "add", "front_cam", "rtsp://cam:8554/front"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams add: %v", err)
	}
	requireContains(t, stdout, "Stream front_cam -> rtsp://cam:8554/front (enabled: yes)")

	stdout, _, err = runCLI(t, []string{"streams", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams list: %v", err)
	}
	requireContains(t, stdout, "front_cam")
	requireContains(t, stdout, "rtsp://cam:8554/front")

	stdout, _, err = runCLI(t, []string{"streams", "disable", "front_cam"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams disable: %v", err)
	}
	requireContains(t, stdout, "Stream front_cam disabled")

	stdout, _, err = runCLI(t, []string{"streams", "enable", "front_cam"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams enable: %v", err)
	}
	requireContains(t, stdout, "Stream front_cam enabled")

	stdout, _, err = runCLI(t, []string{"streams", "remove", "front_cam"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams remove: %v", err)
	}
	requireContains(t, stdout, "Stream front_cam removed")

	stdout, _, err = runCLI(t, []string{"streams", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams list after remove: %v", err)
	}
	requireContains(t, stdout, "No streams configured")
}

func TestStreamsRemoveUnknown(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"streams", "remove", "ghost"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("streams remove: %v", err)
	}
	requireContains(t, stdout, "Stream ghost not found")
}

func TestSessionsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"sessions"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	requireContains(t, stdout, "No recording sessions yet")
}

func TestSpaceCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"space"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("space: %v", err)
	}
	requireContains(t, stdout, "Free Space")
	requireContains(t, stdout, "10 GiB")
	requireContains(t, stdout, "Full-Disk Action")
}

func TestSpaceDeleteOldest(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"space", "delete-oldest"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("space delete-oldest: %v", err)
	}
	requireContains(t, stdout, "No completed recordings to delete")
}

func TestSettingsShowAndSet(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"settings"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	requireContains(t, stdout, "Minimum Free")
	requireContains(t, stdout, "Full-Disk Action")

	stdout, _, err = runCLI(t, []string{"settings", "set", "--min-free-mb", "2048", "--action", "delete_oldest", "--segment-seconds", "900"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	requireContains(t, stdout, "2.0 GiB")
	requireContains(t, stdout, "delete_oldest")
	requireContains(t, stdout, "15m0s")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, stdout, "System Status")
	requireContains(t, stdout, "Not running")
	requireContains(t, stdout, "Disarmed")
	requireContains(t, stdout, "No active recordings")
	requireContains(t, stdout, "No streams configured")
}

func TestStatusCommandOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cancel()
	env.server.Close()

	stdout, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status offline: %v", err)
	}
	requireContains(t, stdout, "Not running")
	requireContains(t, stdout, "Storage")
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	content := "first line\nsecond line\nthird line\n"
	if err := os.WriteFile(env.logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, stdout, "second line")
	requireContains(t, stdout, "third line")
}

func TestLogsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, stdout, "No log entries available")
}

func TestTestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, stdout, "ntfy topic not configured")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)
	if _, statErr := os.Stat(target); statErr != nil {
		t.Fatalf("expected config file at %s: %v", target, statErr)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, "")
	if err == nil {
		t.Fatal("expected error when config already exists")
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
}
