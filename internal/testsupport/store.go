package testsupport

import (
	"context"
	"testing"

	"github.com/cvranjith/faster-whisper/internal/config"
	"github.com/cvranjith/faster-whisper/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewProcessingJob inserts a processing job for tests using the provided store.
func NewProcessingJob(t testing.TB, store *jobs.Store, id, audioPath string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		ID:        id,
		Status:    jobs.StatusProcessing,
		AudioPath: audioPath,
		Model:     "base",
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
