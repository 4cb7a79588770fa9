package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cvranjith/faster-whisper/internal/jobs"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var id string
	var model string
	var callbackURL string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Upload an audio file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Submit(cmd.Context(), args[0], id, model, callbackURL)
			if err != nil {
				if errors.Is(err, jobs.ErrIDConflict) {
					return fmt.Errorf("id %q is already in use; pick another with --id", id)
				}
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if resp.RetryURL != "" {
				fmt.Fprintf(out, "Throttled: %s\n", resp.Message)
				fmt.Fprintf(out, "Retry the upload later (id %s).\n", resp.AudioID)
				return nil
			}
			fmt.Fprintf(out, "%s\n", resp.Message)
			fmt.Fprintf(out, "Audio ID: %s\n", resp.AudioID)
			fmt.Fprintf(out, "Poll progress with `whisperctl progress %s`.\n", resp.AudioID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Custom job ID (defaults to a generated UUID)")
	cmd.Flags().StringVar(&model, "model", "", "Model size override for this job")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "URL notified when the transcription completes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}
