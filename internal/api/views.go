package api

import (
	"time"

	"github.com/cvranjith/faster-whisper/internal/jobs"
)

// ProgressView is the read-only polling projection of a job.
type ProgressView struct {
	Status   jobs.Status `json:"status"`
	Segments int         `json:"segments"`
	Result   string      `json:"result"`
	Message  string      `json:"message,omitempty"`
}

// JobView is the listing projection used by /api/jobs and the CLI.
type JobView struct {
	ID        string      `json:"id"`
	Status    jobs.Status `json:"status"`
	Segments  int         `json:"segments"`
	Model     string      `json:"model,omitempty"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewJobView projects a stored job into its listing form. The accumulated
// result is deliberately omitted; listings stay small and callers fetch text
// through the progress or result endpoints.
func NewJobView(job *jobs.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:        job.ID,
		Status:    job.Status,
		Segments:  job.Segments,
		Model:     job.Model,
		Message:   job.Message,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// StatusView summarizes daemon state.
type StatusView struct {
	Jobs          map[string]int `json:"jobs"`
	TotalJobs     int            `json:"total_jobs"`
	MaxConcurrent int            `json:"max_concurrent"`
	Active        int            `json:"active"`
	WorkDir       string         `json:"work_dir"`
}

// SubmitResponse is the wire shape for accepted submissions.
type SubmitResponse struct {
	Message   string `json:"message"`
	AudioID   string `json:"audio_id"`
	ResultURL string `json:"result_url,omitempty"`
	RetryURL  string `json:"retry_url,omitempty"`
}

// JobListResponse wraps job listings.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}
