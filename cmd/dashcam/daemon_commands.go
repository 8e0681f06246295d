package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dashcam/internal/config"
	"dashcam/internal/daemonctl"
	"dashcam/internal/diskspace"
	"dashcam/internal/ipc"
	"dashcam/internal/settings"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the dashcam daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the dashcam daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping recordings...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the dashcam daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and recording status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := buildStatusSnapshot(ctx, cfg)
			if err != nil {
				return err
			}
			return renderStatus(cmd, cfg, snapshot)
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// buildStatusSnapshot collects daemon status with offline fallbacks: when the
// daemon is unreachable, streams come from the settings file and free space
// from a direct probe of the video directory.
func buildStatusSnapshot(ctx *commandContext, cfg *config.Config) (*statusSnapshot, error) {
	snapshot := &statusSnapshot{}

	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snapshot.status = *resp
			snapshot.online = true
		}
		if resp, listErr := client.StreamList(); listErr == nil && resp != nil {
			snapshot.streams = resp.Streams
		}
	}

	if !snapshot.online {
		store, err := settings.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		current := store.Settings()
		snapshot.status.MinimumFreeSpaceMB = current.MinimumFreeSpaceMB
		snapshot.status.OutOfSpaceAction = current.OutOfSpaceAction
		for _, stream := range store.Streams() {
			snapshot.streams = append(snapshot.streams, ipc.Stream{
				Name:    stream.Name,
				URL:     stream.URL,
				Enabled: stream.Enabled,
			})
		}
		free, err := diskspace.FreeMB(cfg.Paths.VideoDir)
		if err != nil {
			free = -1
		}
		snapshot.status.FreeSpaceMB = free
	}

	return snapshot, nil
}

type statusSnapshot struct {
	status  ipc.StatusResponse
	streams []ipc.Stream
	online  bool
}

func renderStatus(cmd *cobra.Command, cfg *config.Config, snapshot *statusSnapshot) error {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	status := snapshot.status

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Running {
		fmt.Fprintln(stdout, renderStatusLine("Dashcam", statusOK, "Running", colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Dashcam", statusWarn, "Not running (run `dashcam start`)", colorize))
	}
	if status.Armed {
		detail := "Armed"
		if status.BaseFilename != "" {
			detail = fmt.Sprintf("Armed (recording as %s)", status.BaseFilename)
		}
		fmt.Fprintln(stdout, renderStatusLine("Vehicle", statusOK, detail, colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Vehicle", statusInfo, "Disarmed", colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Telemetry", statusInfo, cfg.MAVLink.URL, colorize))
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		fmt.Fprintln(stdout, renderStatusLine("Notifications", statusOK, "Configured", colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Storage", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.FreeSpaceMB >= 0 {
		kind := statusOK
		if status.FreeSpaceMB < status.MinimumFreeSpaceMB {
			kind = statusWarn
		}
		fmt.Fprintln(stdout, renderStatusLine("Free Space", kind, formatMB(status.FreeSpaceMB), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Free Space", statusError, "probe failed", colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Minimum Free", statusInfo, formatMB(status.MinimumFreeSpaceMB), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Full-Disk Action", statusInfo, status.OutOfSpaceAction, colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Active Recordings", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if len(status.ActiveStreams) == 0 {
		fmt.Fprintln(stdout, "No active recordings")
	} else {
		rows := make([][]string, 0, len(status.ActiveStreams))
		for _, stream := range status.ActiveStreams {
			rows = append(rows, []string{stream.Stream, stream.State, stream.OutputPrefix, stream.StartedAt})
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"Stream", "State", "Output Prefix", "Started"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Configured Streams", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if len(snapshot.streams) == 0 {
		fmt.Fprintln(stdout, "No streams configured (add one with `dashcam streams add`)")
		return nil
	}
	rows := make([][]string, 0, len(snapshot.streams))
	for _, stream := range snapshot.streams {
		rows = append(rows, []string{stream.Name, stream.URL, yesNo(stream.Enabled)})
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"Name", "URL", "Enabled"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func formatMB(mb int64) string {
	if mb < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(mb) * 1024 * 1024)
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
