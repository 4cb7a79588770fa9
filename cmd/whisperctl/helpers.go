package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cvranjith/faster-whisper/internal/jobs"
)

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusColor maps a job status to the escape sequence used when the output
// is a terminal. Unknown statuses render unpainted.
func statusColor(status jobs.Status) string {
	switch status {
	case jobs.StatusDone:
		return ansiGreen
	case jobs.StatusError:
		return ansiRed
	case jobs.StatusThrottled, jobs.StatusCancelled:
		return ansiYellow
	case jobs.StatusProcessing:
		return ansiBlue
	}
	return ""
}

func paint(color, s string, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var statusCaser = cases.Title(language.Und)

// statusCaption renders a stored status value for human-facing output
// ("processing" -> "Processing").
func statusCaption(status string) string {
	if status == "" {
		return "-"
	}
	return statusCaser.String(status)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
