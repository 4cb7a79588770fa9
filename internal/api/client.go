package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cvranjith/faster-whisper/internal/jobs"
)

// Client talks to a running whisperd over its HTTP API. It is used by
// whisperctl and by integration tests.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the daemon at baseURL (e.g. "http://127.0.0.1:8471").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit uploads an audio file. A throttled submission is returned as a
// normal response with RetryURL set; conflicts surface as jobs.ErrIDConflict.
func (c *Client) Submit(ctx context.Context, audioPath, id, model, callbackURL string) (*SubmitResponse, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	fields := map[string]string{
		"custom_id":    id,
		"model_size":   model,
		"callback_url": callbackURL,
	}
	for key, value := range fields {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusTooManyRequests:
		var out SubmitResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode submit response: %w", err)
		}
		return &out, nil
	case http.StatusConflict:
		return nil, jobs.ErrIDConflict
	default:
		return nil, readError(resp)
	}
}

// Progress fetches the polling projection for a job.
func (c *Client) Progress(ctx context.Context, id string) (*ProgressView, error) {
	var out ProgressView
	if err := c.getJSON(ctx, "/progress/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Result fetches the full transcription text of a completed job.
func (c *Client) Result(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/result/"+url.PathEscape(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", jobs.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", readError(resp)
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// Cancel requests cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cancel/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return jobs.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Jobs lists jobs, optionally filtered by status.
func (c *Client) Jobs(ctx context.Context, statuses ...jobs.Status) ([]JobView, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", string(status))
		}
		path += "?" + values.Encode()
	}
	var out JobListResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Status fetches the daemon status summary.
func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var out StatusView
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return jobs.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := strings.TrimSpace(string(detail))
	if message == "" {
		message = resp.Status
	}
	return fmt.Errorf("whisperd returned %d: %s", resp.StatusCode, message)
}
