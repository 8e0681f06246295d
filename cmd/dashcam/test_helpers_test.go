package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dashcam/internal/config"
	"dashcam/internal/daemon"
	"dashcam/internal/ipc"
	"dashcam/internal/logging"
	"dashcam/internal/recorder"
	"dashcam/internal/testsupport"
)

type stubHandle struct {
	exitOnce sync.Once
	done     chan error
}

func newStubHandle() *stubHandle {
	return &stubHandle{done: make(chan error, 1)}
}

func (h *stubHandle) exit(err error) {
	h.exitOnce.Do(func() {
		h.done <- err
		close(h.done)
	})
}

func (h *stubHandle) Interrupt() error {
	h.exit(nil)
	return nil
}

func (h *stubHandle) Kill() error {
	h.exit(errors.New("signal: killed"))
	return nil
}

func (h *stubHandle) Done() <-chan error { return h.done }

type stubPipeline struct{}

func (stubPipeline) Launch(recorder.LaunchSpec, func(string)) (recorder.Handle, error) {
	return newStubHandle(), nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(homeDir, ".config", "dashcam", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	d, err := daemon.New(cfg, logger,
		daemon.WithPipeline(stubPipeline{}),
		daemon.WithDiskProbe(func(string) (int64, error) { return 10240, nil }),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    d.LogPath(),
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
video_dir = %q
flight_log_dir = %q
log_dir = %q
settings_path = %q
api_bind = %q
`,
		cfg.Paths.VideoDir,
		cfg.Paths.FlightLogDir,
		cfg.Paths.LogDir,
		cfg.Paths.SettingsPath,
		cfg.Paths.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
