package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dashcam/internal/ipc"
)

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	streamsCmd := &cobra.Command{
		Use:   "streams",
		Short: "Manage camera streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamsList(cmd, ctx)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured camera streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamsList(cmd, ctx)
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add or update a camera stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StreamAdd(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stream %s -> %s (enabled: %s)\n",
					resp.Stream.Name, resp.Stream.URL, yesNo(resp.Stream.Enabled))
				return nil
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a camera stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StreamRemove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Stream %s not found\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stream %s removed\n", args[0])
				return nil
			})
		},
	}

	enableCmd := &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a camera stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamToggle(cmd, ctx, args[0], true)
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a camera stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreamToggle(cmd, ctx, args[0], false)
		},
	}

	streamsCmd.AddCommand(listCmd, addCmd, removeCmd, enableCmd, disableCmd)
	return streamsCmd
}

func runStreamsList(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.StreamList()
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		if len(resp.Streams) == 0 {
			fmt.Fprintln(stdout, "No streams configured")
			return nil
		}
		rows := make([][]string, 0, len(resp.Streams))
		for _, stream := range resp.Streams {
			rows = append(rows, []string{stream.Name, stream.URL, yesNo(stream.Enabled)})
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"Name", "URL", "Enabled"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
		return nil
	})
}

func runStreamToggle(cmd *cobra.Command, ctx *commandContext, name string, enabled bool) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.StreamEnable(name, enabled)
		if err != nil {
			return err
		}
		state := "disabled"
		if resp.Stream.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stream %s %s\n", resp.Stream.Name, state)
		return nil
	})
}
