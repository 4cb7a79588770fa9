package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cvranjith/faster-whisper/internal/api"
	"github.com/cvranjith/faster-whisper/internal/jobs"
	"github.com/cvranjith/faster-whisper/internal/logging"
)

// maxUploadBytes caps a single audio upload.
const maxUploadBytes = 512 << 20

type server struct {
	bind   string
	svc    *api.Service
	logger *slog.Logger

	listener net.Listener
	httpSrv  *http.Server
}

func newServer(bind string, svc *api.Service, logger *slog.Logger) *server {
	srv := &server{bind: bind, svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/progress/", srv.handleProgress)
	mux.HandleFunc("/result/", srv.handleResult)
	mux.HandleFunc("/cancel/", srv.handleCancel)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/status", srv.handleStatus)

	srv.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *server) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *server) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *server) stop() {
	if s == nil || s.httpSrv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	req := api.SubmitRequest{
		ID:          r.FormValue("custom_id"),
		Filename:    header.Filename,
		Audio:       file,
		Model:       r.FormValue("model_size"),
		CallbackURL: r.FormValue("callback_url"),
	}

	receipt, err := s.svc.Submit(r.Context(), req)
	switch {
	case errors.Is(err, jobs.ErrIDConflict):
		s.writeJSON(w, http.StatusConflict, map[string]string{
			"error":    "This ID is already in use. Please supply a new one.",
			"audio_id": strings.TrimSpace(req.ID),
		})
		return
	case errors.Is(err, api.ErrInvalidID):
		s.writeError(w, http.StatusBadRequest, "custom_id must contain only letters, digits, '.', '-', or '_'")
		return
	case err != nil:
		s.log().Error("submission failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if receipt.Throttled {
		s.writeJSON(w, http.StatusTooManyRequests, api.SubmitResponse{
			Message:  "Throttled due to concurrency limits.",
			AudioID:  receipt.JobID,
			RetryURL: receipt.ResultURL,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, api.SubmitResponse{
		Message:   receipt.Message,
		AudioID:   receipt.JobID,
		ResultURL: receipt.ResultURL,
	})
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(r.URL.Path, "/progress/")
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"status": string(jobs.StatusNotFound)})
		return
	}

	view, err := s.svc.Progress(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"status": string(jobs.StatusNotFound)})
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	id, ok := pathID(r.URL.Path, "/result/")
	if ok {
		text, err := s.svc.Result(r.Context(), id)
		if err == nil {
			_, _ = w.Write([]byte(text))
			return
		}
		if !errors.Is(err, jobs.ErrNotFound) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Result not ready or audio_id invalid."))
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(r.URL.Path, "/cancel/")
	if ok {
		err := s.svc.Cancel(r.Context(), id)
		if err == nil {
			s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation_requested"})
			return
		}
		if !errors.Is(err, jobs.ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "No active transcription found for this ID."})
}

func (s *server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := jobs.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
	}

	views, err := s.svc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: views})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Running bool `json:"running"`
		PID     int  `json:"pid"`
		*api.StatusView
	}{Running: true, PID: os.Getpid(), StatusView: view})
}

func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
