package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transcription jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []jobs.Status
			if statusFilter != "" {
				status, ok := jobs.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				statuses = append(statuses, status)
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			views, err := client.Jobs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.JobListResponse{Jobs: views})
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			fmt.Fprintln(out, renderJobsTable(views))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (processing, throttled, done, cancelled, error)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderJobsTable(views []api.JobView) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Status", "Segments", "Model", "Updated"})
	for _, view := range views {
		tw.AppendRow(table.Row{
			view.ID,
			statusCaption(string(view.Status)),
			view.Segments,
			orDash(view.Model),
			formatTimestamp(view.UpdatedAt),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
