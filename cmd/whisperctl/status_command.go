package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}
			var inFlight []api.JobView
			if view.Jobs[string(jobs.StatusProcessing)] > 0 {
				inFlight, err = client.Jobs(cmd.Context(), jobs.StatusProcessing)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderStatusReport(view, inFlight, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}

func renderStatusReport(view *api.StatusView, inFlight []api.JobView, colorize bool) []string {
	workers := fmt.Sprintf("workers %d/%d busy", view.Active, view.MaxConcurrent)
	if view.Active >= view.MaxConcurrent {
		workers = paint(ansiYellow, workers+" (saturated)", colorize)
	}
	lines := []string{
		fmt.Sprintf("whisperd tracking %d job(s) in %s", view.TotalJobs, view.WorkDir),
		workers,
	}

	for _, status := range sortedStatuses(view.Jobs) {
		line := fmt.Sprintf("  %-12s %d", statusCaption(status), view.Jobs[status])
		lines = append(lines, paint(statusColor(jobs.Status(status)), line, colorize))
	}

	if len(inFlight) > 0 {
		lines = append(lines, "", "In flight:")
		for _, job := range inFlight {
			lines = append(lines, fmt.Sprintf("  %s  %d segment(s), model %s",
				job.ID, job.Segments, orDash(job.Model)))
		}
	}
	return lines
}

func sortedStatuses(counts map[string]int) []string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}
