package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/testsupport"
)

func TestCreateAndGetByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewProcessingJob(t, store, "job-1", "/tmp/job-1_audio.wav")
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be assigned on create")
	}

	fetched, err := store.GetByID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to be found")
	}
	if fetched.Status != jobs.StatusProcessing {
		t.Fatalf("unexpected status %q", fetched.Status)
	}
	if fetched.AudioPath != "/tmp/job-1_audio.wav" {
		t.Fatalf("unexpected audio path %q", fetched.AudioPath)
	}
	if fetched.CancelRequested {
		t.Fatal("cancel flag should start false")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	fetched, err := store.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for unknown id, got %#v", fetched)
	}
}

func TestCreateDuplicateIDConflicts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "dup", "/tmp/dup.wav")

	err := store.Create(ctx, &jobs.Job{ID: "dup", Status: jobs.StatusProcessing})
	if !errors.Is(err, jobs.ErrIDConflict) {
		t.Fatalf("expected ErrIDConflict, got %v", err)
	}

	fetched, err := store.GetByID(ctx, "dup")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.AudioPath != "/tmp/dup.wav" {
		t.Fatalf("conflicting create must not mutate the record, got %#v", fetched)
	}
}

func TestCreateRejectsInvalidID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	bad := []string{"", "has space", "slash/id", "../escape", ".hidden"}
	for _, id := range bad {
		if err := store.Create(context.Background(), &jobs.Job{ID: id, Status: jobs.StatusProcessing}); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}

func TestSaveUpdatesExistingRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewProcessingJob(t, store, "job-save", "/tmp/job-save.wav")

	job.Status = jobs.StatusDone
	job.Segments = 7
	job.Result = "[0.00s - 1.00s] hello\n"
	job.AudioPath = ""
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, "job-save")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusDone || fetched.Segments != 7 {
		t.Fatalf("unexpected saved state: %#v", fetched)
	}
	if fetched.Result != "[0.00s - 1.00s] hello\n" {
		t.Fatalf("unexpected result text %q", fetched.Result)
	}
	if fetched.AudioPath != "" {
		t.Fatalf("audio path should be cleared, got %q", fetched.AudioPath)
	}
}

func TestSaveRecreatesReapedRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewProcessingJob(t, store, "job-reaped", "/tmp/job-reaped.wav")

	reaped, _, err := store.SweepOlderThan(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("SweepOlderThan failed: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("expected 1 reaped record, got %d", reaped)
	}

	job.Segments = 5
	job.Result = "partial"
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save after sweep failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, "job-reaped")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Segments != 5 {
		t.Fatalf("expected checkpoint to recreate the row, got %#v", fetched)
	}
}

func TestRequestCancelFlipsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "job-cancel", "/tmp/job-cancel.wav")

	ok, err := store.RequestCancel(ctx, "job-cancel")
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel request to find the record")
	}

	cancelled, err := store.CancelRequested(ctx, "job-cancel")
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancel flag to be set")
	}

	// Repeat requests are accepted and change nothing.
	ok, err = store.RequestCancel(ctx, "job-cancel")
	if err != nil || !ok {
		t.Fatalf("repeat RequestCancel: ok=%v err=%v", ok, err)
	}
}

func TestRequestCancelThrottledRowReportsAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.Create(ctx, &jobs.Job{ID: "parked", Status: jobs.StatusThrottled}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.RequestCancel(ctx, "parked")
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if ok {
		t.Fatal("throttled row never started and must not accept cancellation")
	}

	cancelled, err := store.CancelRequested(ctx, "parked")
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if cancelled {
		t.Fatal("cancel flag must stay clear on throttled rows")
	}
}

func TestRequestCancelTerminalRowStillAccepted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.Create(ctx, &jobs.Job{ID: "finished", Status: jobs.StatusDone, Result: "text"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := store.RequestCancel(ctx, "finished")
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !ok {
		t.Fatal("terminal-but-unswept rows accept the request; nobody observes the flag")
	}
}

func TestRequestCancelUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ok, err := store.RequestCancel(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if ok {
		t.Fatal("expected unknown id to report no record")
	}

	cancelled, err := store.CancelRequested(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if cancelled {
		t.Fatal("missing record must read as not cancelled")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "list-a", "/tmp/a.wav")
	if err := store.Create(ctx, &jobs.Job{ID: "list-b", Status: jobs.StatusThrottled}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, &jobs.Job{ID: "list-c", Status: jobs.StatusDone}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	throttled, err := store.List(ctx, jobs.StatusThrottled)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(throttled) != 1 || throttled[0].ID != "list-b" {
		t.Fatalf("unexpected filtered listing: %#v", throttled)
	}

	mixed, err := store.List(ctx, jobs.StatusThrottled, jobs.StatusDone)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mixed) != 2 {
		t.Fatalf("expected 2 jobs for two statuses, got %d", len(mixed))
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "stats-a", "/tmp/a.wav")
	testsupport.NewProcessingJob(t, store, "stats-b", "/tmp/b.wav")
	if err := store.Create(ctx, &jobs.Job{ID: "stats-c", Status: jobs.StatusError, Message: "boom"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobs.StatusProcessing] != 2 || stats[jobs.StatusError] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSweepOlderThanRespectsCutoff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "fresh", "/tmp/fresh.wav")

	reaped, artifacts, err := store.SweepOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SweepOlderThan failed: %v", err)
	}
	if reaped != 0 || len(artifacts) != 0 {
		t.Fatalf("fresh job must survive a past cutoff: reaped=%d artifacts=%v", reaped, artifacts)
	}

	reaped, artifacts, err = store.SweepOlderThan(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("SweepOlderThan failed: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("expected 1 reaped record, got %d", reaped)
	}
	if len(artifacts) != 1 || artifacts[0] != "/tmp/fresh.wav" {
		t.Fatalf("expected the audio artifact to be reported, got %v", artifacts)
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewProcessingJob(t, store, "gone", "/tmp/gone.wav")

	removed, err := store.Remove(ctx, "gone")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected record to be removed")
	}

	removed, err = store.Remove(ctx, "gone")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("second remove must report no record")
	}
}
