package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cvranjith/faster-whisper/internal/callback"
	"github.com/cvranjith/faster-whisper/internal/config"
	"github.com/cvranjith/faster-whisper/internal/fileutil"
	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/logging"
	"github.com/cvranjith/faster-whisper/internal/transcribe"
)

// Executor runs one admitted job at a time per call; concurrent jobs are
// separate goroutines over the same Executor.
type Executor struct {
	store           *jobs.Store
	transcriber     transcribe.Transcriber
	notifier        *callback.Client
	limiter         *Limiter
	logger          *slog.Logger
	workDir         string
	checkpointEvery int
}

// NewExecutor wires an executor over the shared store, limiter, and
// transcription service.
func NewExecutor(cfg *config.Config, store *jobs.Store, transcriber transcribe.Transcriber, notifier *callback.Client, limiter *Limiter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		store:           store,
		transcriber:     transcriber,
		notifier:        notifier,
		limiter:         limiter,
		logger:          logger,
		workDir:         cfg.Paths.WorkDir,
		checkpointEvery: cfg.Jobs.CheckpointEvery,
	}
}

// Start runs the job asynchronously. The submitting request returns
// immediately; the spawned goroutine owns the job's permit and audio artifact
// from here on.
func (e *Executor) Start(job *jobs.Job) {
	go e.Run(context.Background(), job)
}

// Run executes the job to a terminal state. The concurrency permit is
// released on every exit path, and the audio artifact is deleted exactly
// once whether the job completes, is cancelled, or fails.
func (e *Executor) Run(ctx context.Context, job *jobs.Job) {
	defer e.limiter.Release()

	log := e.logger.With(
		logging.String("component", "executor"),
		logging.String("job_id", job.ID),
	)

	audioPath := job.AudioPath
	audioDeleted := false
	deleteAudio := func() {
		if audioDeleted || audioPath == "" {
			return
		}
		audioDeleted = true
		if err := fileutil.RemoveIfExists(audioPath); err != nil {
			log.Warn("delete audio artifact", logging.Error(err))
		}
	}
	defer deleteAudio()

	stream, err := e.transcriber.Transcribe(ctx, audioPath, job.Model)
	if err != nil {
		e.fail(ctx, log, job, err)
		return
	}
	defer func() { _ = stream.Close() }()

	var result strings.Builder
	count := 0

	for {
		cancelled, err := e.store.CancelRequested(ctx, job.ID)
		if err != nil {
			log.Warn("read cancel flag", logging.Error(err))
		}
		if cancelled {
			job.Status = jobs.StatusCancelled
			job.Segments = count
			job.Result = result.String()
			job.AudioPath = ""
			if err := e.store.Save(ctx, job); err != nil {
				log.Error("persist cancelled state", logging.Error(err))
			}
			deleteAudio()
			log.Info("job cancelled", logging.Int("segments", count))
			return
		}

		seg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			job.Segments = count
			job.Result = result.String()
			e.fail(ctx, log, job, err)
			return
		}

		fmt.Fprintf(&result, "[%.2fs - %.2fs] %s\n", seg.Start, seg.End, seg.Text)
		count++

		if count%e.checkpointEvery == 0 {
			job.Status = jobs.StatusProcessing
			job.Segments = count
			job.Result = result.String()
			if err := e.store.Save(ctx, job); err != nil {
				log.Warn("persist checkpoint", logging.Error(err), logging.Int("segments", count))
			}
		}
	}

	text := result.String()
	outputPath := filepath.Join(e.workDir, "output_"+job.ID+".txt")
	if err := fileutil.WriteFileAtomic(outputPath, []byte(text), 0o644); err != nil {
		job.Segments = count
		job.Result = text
		e.fail(ctx, log, job, fmt.Errorf("write result artifact: %w", err))
		return
	}

	job.Status = jobs.StatusDone
	job.Segments = count
	job.Result = text
	job.AudioPath = ""
	if err := e.store.Save(ctx, job); err != nil {
		log.Error("persist final state", logging.Error(err))
	}
	deleteAudio()
	log.Info("job completed", logging.Int("segments", count))

	if job.CallbackURL != "" {
		if err := e.notifier.NotifyCompleted(ctx, job.CallbackURL, job.ID, text); err != nil {
			// Delivery is at-most-once and never retried or fatal.
			log.Warn("completion callback failed", logging.Error(err))
		}
	}
}

func (e *Executor) fail(ctx context.Context, log *slog.Logger, job *jobs.Job, cause error) {
	job.Status = jobs.StatusError
	job.Message = cause.Error()
	job.AudioPath = ""
	if err := e.store.Save(ctx, job); err != nil {
		log.Error("persist error state", logging.Error(err))
	}
	log.Error("job failed", logging.Error(cause), logging.Int("segments", job.Segments))
}
