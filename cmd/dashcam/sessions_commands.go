package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dashcam/internal/ipc"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent recording sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sessions(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sessions) == 0 {
					fmt.Fprintln(stdout, "No recording sessions yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sessions))
				for _, session := range resp.Sessions {
					disarmed := session.DisarmedAt
					if disarmed == "" {
						disarmed = "in progress"
					}
					rows = append(rows, []string{
						session.ID,
						session.BaseFilename,
						session.ArmedAt,
						disarmed,
						strconv.Itoa(session.Recordings),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Base Filename", "Armed", "Disarmed", "Recordings"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	sessionsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the recordings of one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionRecordings(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Recordings) == 0 {
					fmt.Fprintln(stdout, "No recordings in this session")
					return nil
				}
				rows := make([][]string, 0, len(resp.Recordings))
				for _, rec := range resp.Recordings {
					ended := rec.EndedAt
					if ended == "" {
						ended = "in progress"
					}
					rows = append(rows, []string{rec.Stream, rec.OutputPrefix, rec.StartedAt, ended, rec.Outcome})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Stream", "Output Prefix", "Started", "Ended", "Outcome"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	sessionsCmd.AddCommand(showCmd)
	return sessionsCmd
}
