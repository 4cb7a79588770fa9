package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cvranjith/faster-whisper/internal/callback"
	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/testsupport"
	"github.com/cvranjith/faster-whisper/internal/transcribe"
	"github.com/cvranjith/faster-whisper/internal/worker"
)

var threeSegments = []transcribe.Segment{
	{Start: 0, End: 1.5, Text: "hello"},
	{Start: 1.5, End: 3, Text: "from"},
	{Start: 3, End: 4.25, Text: "whisperd"},
}

func TestRunCompletesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)
	stub := &testsupport.StubTranscriber{Segments: threeSegments}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	ctx := context.Background()
	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "done-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "done-1", audioPath)

	if !limiter.TryAcquire() {
		t.Fatal("acquire permit")
	}
	exec.Run(ctx, job)

	fetched, err := store.GetByID(ctx, "done-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusDone {
		t.Fatalf("expected done, got %q (message %q)", fetched.Status, fetched.Message)
	}
	if fetched.Segments != 3 {
		t.Fatalf("expected 3 segments, got %d", fetched.Segments)
	}
	want := "[0.00s - 1.50s] hello\n[1.50s - 3.00s] from\n[3.00s - 4.25s] whisperd\n"
	if fetched.Result != want {
		t.Fatalf("unexpected result text:\n%q\nwant:\n%q", fetched.Result, want)
	}

	if limiter.InUse() != 0 {
		t.Fatalf("permit not released, in use %d", limiter.InUse())
	}
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Fatalf("audio artifact should be deleted, stat err=%v", err)
	}
	output, err := os.ReadFile(filepath.Join(cfg.Paths.WorkDir, "output_done-1.txt"))
	if err != nil {
		t.Fatalf("read output artifact: %v", err)
	}
	if string(output) != want {
		t.Fatalf("output artifact mismatch: %q", string(output))
	}
}

func TestRunCheckpointsDuringStream(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Jobs.CheckpointEvery = 2
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	segments := make([]transcribe.Segment, 5)
	for i := range segments {
		segments[i] = transcribe.Segment{Start: float64(i), End: float64(i + 1), Text: "seg"}
	}

	var observed []int
	stub := &testsupport.StubTranscriber{Segments: segments}
	stub.OnSegment = func(i int) {
		fetched, err := store.GetByID(context.Background(), "ckpt-1")
		if err != nil {
			t.Errorf("GetByID during stream: %v", err)
			return
		}
		count := 0
		if fetched != nil {
			count = fetched.Segments
		}
		observed = append(observed, count)
	}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "ckpt-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "ckpt-1", audioPath)
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	// Persisted counts seen just before each segment: checkpoints land after
	// segments 2 and 4.
	want := []int{0, 0, 2, 2, 4}
	if len(observed) != len(want) {
		t.Fatalf("expected %d observations, got %v", len(want), observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("unexpected checkpoint trail %v, want %v", observed, want)
		}
	}
}

func TestRunStopsAtCancelBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	var callbackHits int
	callbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callbackHits++
	}))
	defer callbackSrv.Close()

	stub := &testsupport.StubTranscriber{Segments: threeSegments}
	stub.OnSegment = func(i int) {
		if i == 1 {
			if _, err := store.RequestCancel(context.Background(), "cancel-1"); err != nil {
				t.Errorf("RequestCancel: %v", err)
			}
		}
	}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "cancel-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "cancel-1", audioPath)
	job.CallbackURL = callbackSrv.URL
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	fetched, err := store.GetByID(context.Background(), "cancel-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", fetched.Status)
	}
	// The flag flipped mid-segment, so the segment in flight still lands.
	if fetched.Segments != 2 {
		t.Fatalf("expected 2 segments before the boundary check, got %d", fetched.Segments)
	}
	if fetched.Result == "" {
		t.Fatal("partial result must be preserved")
	}
	if callbackHits != 0 {
		t.Fatalf("cancelled jobs must not fire callbacks, got %d", callbackHits)
	}
	if limiter.InUse() != 0 {
		t.Fatal("permit not released after cancellation")
	}
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Fatalf("audio artifact should be deleted, stat err=%v", err)
	}
}

func TestRunFailureIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	stub := &testsupport.StubTranscriber{
		Segments:  threeSegments,
		FailAfter: 2,
		FailErr:   errors.New("decoder exploded"),
	}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "fail-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "fail-1", audioPath)
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	fetched, err := store.GetByID(context.Background(), "fail-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %q", fetched.Status)
	}
	if fetched.Message == "" {
		t.Fatal("failure message must be recorded")
	}
	if fetched.Segments != 2 {
		t.Fatalf("segments produced before the failure must persist, got %d", fetched.Segments)
	}
	if limiter.InUse() != 0 {
		t.Fatal("permit not released after failure")
	}
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Fatalf("audio artifact should be deleted, stat err=%v", err)
	}
}

func TestRunTranscriberStartError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	stub := &testsupport.StubTranscriber{StartErr: errors.New("binary missing")}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "start-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "start-1", audioPath)
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	fetched, err := store.GetByID(context.Background(), "start-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusError {
		t.Fatalf("expected error status, got %q", fetched.Status)
	}
	if limiter.InUse() != 0 {
		t.Fatal("permit not released")
	}
}

func TestRunNotifiesCallbackOnCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	var mu sync.Mutex
	var payload map[string]string
	callbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode callback payload: %v", err)
		}
	}))
	defer callbackSrv.Close()

	stub := &testsupport.StubTranscriber{Segments: threeSegments}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "notify-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "notify-1", audioPath)
	job.CallbackURL = callbackSrv.URL
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	mu.Lock()
	defer mu.Unlock()
	if payload["audio_id"] != "notify-1" {
		t.Fatalf("unexpected callback payload: %#v", payload)
	}
	if payload["transcription"] == "" {
		t.Fatal("callback must carry the full transcription")
	}
}

func TestRunCallbackFailureDoesNotFailJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	limiter := worker.NewLimiter(1)

	callbackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer callbackSrv.Close()

	stub := &testsupport.StubTranscriber{Segments: threeSegments}
	exec := worker.NewExecutor(cfg, store, stub, callback.New(cfg), limiter, nil)

	audioPath := writeAudioArtifact(t, cfg.Paths.WorkDir, "flaky-1_audio.wav")
	job := testsupport.NewProcessingJob(t, store, "flaky-1", audioPath)
	job.CallbackURL = callbackSrv.URL
	limiter.TryAcquire()
	exec.Run(context.Background(), job)

	fetched, err := store.GetByID(context.Background(), "flaky-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusDone {
		t.Fatalf("callback failure must not change the terminal state, got %q", fetched.Status)
	}
}

func writeAudioArtifact(t *testing.T, workDir, name string) string {
	t.Helper()
	path := filepath.Join(workDir, name)
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("write audio artifact: %v", err)
	}
	return path
}
