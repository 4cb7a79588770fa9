package callback_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cvranjith/faster-whisper/internal/callback"
	"github.com/cvranjith/faster-whisper/internal/testsupport"
)

func TestNotifyCompletedPostsPayload(t *testing.T) {
	var gotContentType string
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	client := callback.New(testsupport.NewConfig(t))
	err := client.NotifyCompleted(context.Background(), srv.URL, "job-123", "[0.00s - 1.00s] hi\n")
	if err != nil {
		t.Fatalf("NotifyCompleted failed: %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if payload["audio_id"] != "job-123" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if !strings.Contains(payload["transcription"], "hi") {
		t.Fatalf("transcription missing from payload %#v", payload)
	}
}

func TestNotifyCompletedEmptyTargetIsNoOp(t *testing.T) {
	client := callback.New(testsupport.NewConfig(t))
	if err := client.NotifyCompleted(context.Background(), "  ", "job-1", "text"); err != nil {
		t.Fatalf("empty target must be a no-op, got %v", err)
	}
}

func TestNotifyCompletedReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := callback.New(testsupport.NewConfig(t))
	err := client.NotifyCompleted(context.Background(), srv.URL, "job-1", "text")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("error should carry the status code, got %v", err)
	}
}
