package transcribe

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cvranjith/faster-whisper/internal/config"
)

// maxSegmentLine bounds a single JSON segment line from the external command.
const maxSegmentLine = 1 << 20

// Runner launches the external command and returns its stdout plus a wait
// function invoked after the stream is drained or abandoned.
type Runner func(ctx context.Context, name string, args ...string) (io.ReadCloser, func() error, error)

// Service runs the configured faster-whisper wrapper command.
type Service struct {
	cfg    config.Transcriber
	runner Runner
}

// NewService creates a transcriber backed by the configured external command.
func NewService(cfg config.Transcriber) *Service {
	return &Service{cfg: cfg}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(runner Runner) {
	s.runner = runner
}

// Model returns the effective model for a job, falling back to the
// configured default when the job did not select one.
func (s *Service) Model(selected string) string {
	if trimmed := strings.TrimSpace(selected); trimmed != "" {
		return trimmed
	}
	return s.cfg.Model
}

// Transcribe launches the external command and exposes its stdout as a lazy
// segment stream.
func (s *Service) Transcribe(ctx context.Context, audioPath, model string) (Stream, error) {
	if audioPath == "" {
		return nil, fmt.Errorf("transcribe: audio path required")
	}

	args := s.buildArgs(audioPath, model)
	runner := s.runner
	if runner == nil {
		runner = runCommand
	}

	stdout, wait, err := runner(ctx, s.cfg.Command, args...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", s.cfg.Command, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxSegmentLine)
	return &commandStream{stdout: stdout, wait: wait, scanner: scanner}, nil
}

func (s *Service) buildArgs(audioPath, model string) []string {
	return []string{
		audioPath,
		"--model", s.Model(model),
		"--beam-size", strconv.Itoa(s.cfg.BeamSize),
		"--compute-type", s.cfg.ComputeType,
		"--output", "jsonl",
	}
}

func runCommand(ctx context.Context, name string, args ...string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if detail := strings.TrimSpace(stderr.String()); detail != "" {
				return fmt.Errorf("%w: %s", err, detail)
			}
			return err
		}
		return nil
	}
	return stdout, wait, nil
}

type commandStream struct {
	stdout  io.ReadCloser
	wait    func() error
	scanner *bufio.Scanner
	waited  bool
}

func (c *commandStream) Next(ctx context.Context) (Segment, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, err
	}

	for c.scanner.Scan() {
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}
		var seg Segment
		if err := json.Unmarshal([]byte(line), &seg); err != nil {
			return Segment{}, fmt.Errorf("parse segment line: %w", err)
		}
		return seg, nil
	}

	if err := c.scanner.Err(); err != nil {
		return Segment{}, fmt.Errorf("read segments: %w", err)
	}
	// Stdout is drained; a non-zero exit still counts as failure.
	if err := c.finish(); err != nil {
		return Segment{}, err
	}
	return Segment{}, io.EOF
}

func (c *commandStream) Close() error {
	_ = c.stdout.Close()
	return c.finish()
}

func (c *commandStream) finish() error {
	if c.waited || c.wait == nil {
		return nil
	}
	c.waited = true
	return c.wait()
}
