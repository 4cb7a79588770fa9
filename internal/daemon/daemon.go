package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/config"
	"github.com/cvranjith/faster-whisper/internal/logging"
)

// Daemon owns the process-wide resources: the instance lock and the HTTP
// server over the job facade.
type Daemon struct {
	cfg    *config.Config
	svc    *api.Service
	logger *slog.Logger
	lock   *flock.Flock
	server *server
}

// New acquires the single-instance lock and prepares the HTTP server. A
// second daemon on the same work directory fails fast instead of racing the
// first for job state.
func New(cfg *config.Config, svc *api.Service, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.WorkDir, "whisperd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another whisperd instance holds %s", lockPath)
	}

	return &Daemon{
		cfg:    cfg,
		svc:    svc,
		logger: logger,
		lock:   lock,
		server: newServer(cfg.Paths.APIBind, svc, logger),
	}, nil
}

// Start begins serving HTTP. The server shuts down when ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	return d.server.start(ctx)
}

// Addr returns the bound listener address, useful when binding to port 0.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Close releases the instance lock and stops the server.
func (d *Daemon) Close() {
	if d == nil {
		return
	}
	d.server.stop()
	if d.lock != nil {
		_ = d.lock.Unlock()
	}
}
