package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cvranjith/faster-whisper/internal/config"
	"github.com/cvranjith/faster-whisper/internal/fileutil"
	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/logging"
	"github.com/cvranjith/faster-whisper/internal/worker"
)

// ErrInvalidID is returned when a caller-supplied ID is not key-safe.
var ErrInvalidID = errors.New("invalid job id")

const throttledMessage = "Transcription is throttled. Please retry later."

// Service is the job facade called by the HTTP layer.
type Service struct {
	cfg      *config.Config
	store    *jobs.Store
	limiter  *worker.Limiter
	executor *worker.Executor
	sweeper  *jobs.Sweeper
	logger   *slog.Logger
}

// NewService wires the facade over the job core.
func NewService(cfg *config.Config, store *jobs.Store, limiter *worker.Limiter, executor *worker.Executor, sweeper *jobs.Sweeper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		limiter:  limiter,
		executor: executor,
		sweeper:  sweeper,
		logger:   logger.With(logging.String("component", "api")),
	}
}

// SubmitRequest carries one transcription submission.
type SubmitRequest struct {
	// ID is the caller-chosen identifier; empty means generate one.
	ID string
	// Filename is the uploaded file's name, used for the artifact path.
	Filename string
	// Audio is the uploaded audio payload.
	Audio io.Reader
	// Model selects the transcription model; empty uses the configured default.
	Model string
	// CallbackURL, when set, receives one completion notification.
	CallbackURL string
}

// Receipt describes the outcome of an accepted submission. Throttled
// receipts identify jobs that terminated immediately without executing.
type Receipt struct {
	JobID     string
	Message   string
	ResultURL string
	Throttled bool
}

// Submit admits a job: best-effort retention sweep, ID allocation and
// collision check, artifact persistence, then permit acquisition. With a
// permit the job starts executing asynchronously; without one it terminates
// immediately as throttled and the caller must resubmit later.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	s.sweeper.Sweep(ctx)

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	} else if !jobs.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, req.ID)
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("job %q: %w", id, jobs.ErrIDConflict)
	}

	resultURL := "/result/" + id

	if !s.limiter.TryAcquire() {
		// No permit means the upload is never persisted; the terminal
		// throttled record is the only trace of the submission.
		throttled := &jobs.Job{
			ID:      id,
			Status:  jobs.StatusThrottled,
			Message: throttledMessage + " Results would appear at " + resultURL + ".",
		}
		if err := s.store.Create(ctx, throttled); err != nil {
			return nil, err
		}
		s.logger.Info("submission throttled", logging.String("job_id", id))
		return &Receipt{JobID: id, Message: throttledMessage, ResultURL: resultURL, Throttled: true}, nil
	}

	job := &jobs.Job{
		ID:          id,
		Status:      jobs.StatusProcessing,
		AudioPath:   filepath.Join(s.cfg.Paths.WorkDir, id+"_"+sanitizeFilename(req.Filename)),
		Model:       strings.TrimSpace(req.Model),
		CallbackURL: strings.TrimSpace(req.CallbackURL),
	}
	if job.Model == "" {
		job.Model = s.cfg.Transcriber.Model
	}

	// The row is created before the artifact so that a concurrent submission
	// racing on the same fresh ID loses here, before it could touch the
	// winner's audio file.
	if err := s.store.Create(ctx, job); err != nil {
		s.limiter.Release()
		return nil, err
	}

	if err := fileutil.SaveStream(req.Audio, job.AudioPath); err != nil {
		job.Status = jobs.StatusError
		job.Message = "persist audio: " + err.Error()
		job.AudioPath = ""
		if saveErr := s.store.Save(ctx, job); saveErr != nil {
			s.logger.Error("persist admission failure", logging.Error(saveErr))
		}
		s.limiter.Release()
		return nil, fmt.Errorf("persist audio: %w", err)
	}

	s.executor.Start(job)
	s.logger.Info("job admitted", logging.String("job_id", id), logging.String("model", job.Model))
	return &Receipt{JobID: id, Message: "Transcription started", ResultURL: resultURL}, nil
}

// Progress returns the polling projection for a job.
func (s *Service) Progress(ctx context.Context, id string) (*ProgressView, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %q: %w", id, jobs.ErrNotFound)
	}
	return &ProgressView{
		Status:   job.Status,
		Segments: job.Segments,
		Result:   job.Result,
		Message:  job.Message,
	}, nil
}

// Result returns the full transcription text once the job is done.
func (s *Service) Result(ctx context.Context, id string) (string, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job == nil || job.Status != jobs.StatusDone {
		return "", fmt.Errorf("job %q: %w", id, jobs.ErrNotFound)
	}
	return job.Result, nil
}

// Cancel requests cooperative cancellation. The flag only ever flips from
// false to true; a repeat request or one against a terminal-but-unswept job
// is accepted and observed by nobody. Throttled jobs never started, so they
// report ErrNotFound like unknown IDs.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ok, err := s.store.RequestCancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job %q: %w", id, jobs.ErrNotFound)
	}
	s.logger.Info("cancellation requested", logging.String("job_id", id))
	return nil
}

// List returns job views filtered by the given statuses.
func (s *Service) List(ctx context.Context, statuses ...jobs.Status) ([]JobView, error) {
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(items))
	for _, job := range items {
		views = append(views, NewJobView(job))
	}
	return views, nil
}

// Status summarizes daemon health for the status endpoint and CLI.
func (s *Service) Status(ctx context.Context) (*StatusView, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stats))
	total := 0
	for status, count := range stats {
		counts[string(status)] = count
		total += count
	}
	return &StatusView{
		Jobs:          counts,
		TotalJobs:     total,
		MaxConcurrent: s.limiter.Capacity(),
		Active:        s.limiter.InUse(),
		WorkDir:       s.cfg.Paths.WorkDir,
	}, nil
}

// sanitizeFilename keeps the artifact name key-safe; anything suspicious
// collapses to a generic name.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "audio"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "audio"
	}
	return cleaned
}
