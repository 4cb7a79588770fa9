package transcribe

import "context"

// Segment is one timestamped chunk of recognized speech. Start times are
// monotonically non-decreasing within a stream.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Stream yields segments in recognition order. Next returns io.EOF once the
// sequence is exhausted. Close releases the underlying operation and must be
// called exactly once.
type Stream interface {
	Next(ctx context.Context) (Segment, error)
	Close() error
}

// Transcriber starts a transcription of an audio artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, model string) (Stream, error)
}
