package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvranjith/faster-whisper/internal/jobs"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "progress <audio-id>",
		Short: "Show the current status and partial text of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:   %s\n", statusCaption(string(view.Status)))
			fmt.Fprintf(out, "Segments: %d\n", view.Segments)
			if view.Message != "" {
				fmt.Fprintf(out, "Message:  %s\n", view.Message)
			}
			if view.Result != "" {
				fmt.Fprintln(out)
				fmt.Fprint(out, view.Result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "result <audio-id>",
		Short: "Print the full transcription of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			text, err := client.Result(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, jobs.ErrNotFound) {
					return fmt.Errorf("no completed transcription for %q; check `whisperctl progress %s`", args[0], args[0])
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <audio-id>",
		Short: "Request cancellation of an in-flight job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Cancel(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, jobs.ErrNotFound) {
					return fmt.Errorf("no active transcription found for %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for %s\n", args[0])
			return nil
		},
	}
}
