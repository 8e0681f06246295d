package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dashcam/internal/ipc"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show storage policy settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Settings()
				if err != nil {
					return err
				}
				printSettings(cmd, resp.MinimumFreeSpaceMB, resp.OutOfSpaceAction, resp.SegmentSeconds)
				return nil
			})
		},
	}

	var minFreeMB int64
	var action string
	var segmentSeconds int

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update storage policy settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				current, err := client.Settings()
				if err != nil {
					return err
				}
				update := ipc.SettingsUpdateRequest{
					MinimumFreeSpaceMB: current.MinimumFreeSpaceMB,
					OutOfSpaceAction:   current.OutOfSpaceAction,
					SegmentSeconds:     current.SegmentSeconds,
				}
				if cmd.Flags().Changed("min-free-mb") {
					update.MinimumFreeSpaceMB = minFreeMB
				}
				if cmd.Flags().Changed("action") {
					update.OutOfSpaceAction = action
				}
				if cmd.Flags().Changed("segment-seconds") {
					update.SegmentSeconds = segmentSeconds
				}
				resp, err := client.SettingsUpdate(update)
				if err != nil {
					return err
				}
				printSettings(cmd, resp.Settings.MinimumFreeSpaceMB, resp.Settings.OutOfSpaceAction, resp.Settings.SegmentSeconds)
				return nil
			})
		},
	}
	setCmd.Flags().Int64Var(&minFreeMB, "min-free-mb", 0, "Minimum free space in MB before recording is denied")
	setCmd.Flags().StringVar(&action, "action", "", "Full-disk action: stop or delete_oldest")
	setCmd.Flags().IntVar(&segmentSeconds, "segment-seconds", 0, "Recording segment length in seconds")

	settingsCmd.AddCommand(setCmd)
	return settingsCmd
}

func printSettings(cmd *cobra.Command, minFreeMB int64, action string, segmentSeconds int) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	fmt.Fprintln(stdout, renderStatusLine("Minimum Free", statusInfo, formatMB(minFreeMB), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Full-Disk Action", statusInfo, action, colorize))
	length := "default"
	if segmentSeconds > 0 {
		length = (time.Duration(segmentSeconds) * time.Second).String()
	}
	fmt.Fprintln(stdout, renderStatusLine("Segment Length", statusInfo, length, colorize))
}
