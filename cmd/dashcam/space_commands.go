package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dashcam/internal/ipc"
)

func newSpaceCommand(ctx *commandContext) *cobra.Command {
	spaceCmd := &cobra.Command{
		Use:   "space",
		Short: "Inspect disk space in the video directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DiskSpace()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				kind := statusOK
				if resp.FreeMB < resp.MinimumFreeSpaceMB {
					kind = statusWarn
				}
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Free Space", kind, formatMB(resp.FreeMB), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Minimum Free", statusInfo, formatMB(resp.MinimumFreeSpaceMB), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Full-Disk Action", statusInfo, resp.OutOfSpaceAction, colorize))
				return nil
			})
		},
	}

	deleteOldestCmd := &cobra.Command{
		Use:   "delete-oldest",
		Short: "Delete the oldest completed recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeleteOldest()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Deleted == "" {
					fmt.Fprintln(stdout, "No completed recordings to delete")
					return nil
				}
				fmt.Fprintf(stdout, "Deleted %s\n", filepath.Base(resp.Deleted))
				return nil
			})
		},
	}

	spaceCmd.AddCommand(deleteOldestCmd)
	return spaceCmd
}
