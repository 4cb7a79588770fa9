// Package callback delivers the one-shot completion notification for jobs
// that supplied a callback URL.
//
// Delivery is fire-and-forget: at most one POST per job, only on natural
// completion, and a failed delivery never changes the job's terminal state.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cvranjith/faster-whisper/internal/config"
)

const userAgent = "whisperd/0.1.0"

// Client posts completion notifications to caller-supplied URLs.
type Client struct {
	client *http.Client
}

// New builds a callback client using the configured request timeout.
func New(cfg *config.Config) *Client {
	timeout := 10 * time.Second
	if cfg != nil && cfg.CallbackTimeout() > 0 {
		timeout = cfg.CallbackTimeout()
	}
	return &Client{client: &http.Client{Timeout: timeout}}
}

type completionPayload struct {
	AudioID       string `json:"audio_id"`
	Transcription string `json:"transcription"`
}

// NotifyCompleted posts {audio_id, transcription} to target. An empty target
// is a no-op; callers decide what to do with a delivery error.
func (c *Client) NotifyCompleted(ctx context.Context, target, jobID, transcription string) error {
	target = strings.TrimSpace(target)
	if c == nil || c.client == nil || target == "" {
		return nil
	}

	body, err := json.Marshal(completionPayload{AudioID: jobID, Transcription: transcription})
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
