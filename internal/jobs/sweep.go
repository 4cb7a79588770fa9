package jobs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cvranjith/faster-whisper/internal/logging"
)

// Sweeper reaps job records and work-directory artifacts past the retention
// window. Age is the only criterion: a job still processing past the window
// loses its record too, which bounds storage at the cost of that job
// checkpointing its row back into existence at the next segment boundary.
type Sweeper struct {
	store   *Store
	workDir string
	ttl     time.Duration
	logger  *slog.Logger
}

// NewSweeper builds a sweeper over the store and its work directory.
func NewSweeper(store *Store, workDir string, ttl time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{store: store, workDir: workDir, ttl: ttl, logger: logger}
}

// Sweep removes expired rows and stale files. Individual failures are logged
// and do not abort the pass; callers treat the whole sweep as best-effort.
func (s *Sweeper) Sweep(ctx context.Context) {
	log := s.logger.With(logging.String("component", "sweeper"))
	cutoff := time.Now().Add(-s.ttl)

	reaped, artifacts, err := s.store.SweepOlderThan(ctx, cutoff)
	if err != nil {
		log.Warn("job record sweep failed", logging.Error(err))
	} else if reaped > 0 {
		log.Info("swept expired job records", logging.Int64("count", reaped), logging.Duration("retention", s.ttl))
	}
	for _, artifact := range artifacts {
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			log.Warn("delete swept artifact", logging.String("path", artifact), logging.Error(err))
		}
	}

	s.sweepFiles(log, cutoff)
}

func (s *Sweeper) sweepFiles(log *slog.Logger, cutoff time.Time) {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		log.Warn("read work directory", logging.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !sweepable(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.workDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn("delete stale file", logging.String("path", path), logging.Error(err))
			continue
		}
		log.Debug("deleted stale file", logging.String("path", path))
	}
}

// sweepable excludes the database and lock files that live alongside job
// artifacts in the work directory.
func sweepable(name string) bool {
	if strings.HasPrefix(name, "jobs.db") {
		return false
	}
	if strings.HasSuffix(name, ".lock") {
		return false
	}
	return true
}
