package testsupport

import (
	"context"
	"io"
	"sync"

	"github.com/cvranjith/faster-whisper/internal/transcribe"
)

// StubTranscriber replays a scripted segment sequence in place of the
// external transcription command.
type StubTranscriber struct {
	// Segments is the ordered sequence to replay.
	Segments []transcribe.Segment
	// StartErr, when set, fails Transcribe before any segment is produced.
	StartErr error
	// FailAfter injects a stream error after this many segments were
	// produced; zero means never.
	FailAfter int
	// FailErr is the injected stream error; required when FailAfter is set.
	FailErr error
	// OnSegment, when set, runs just before segment i (0-based) is returned.
	// Tests use it to flip the cancel flag at a precise boundary.
	OnSegment func(i int)

	mu      sync.Mutex
	started int
}

// Transcribe returns a stream replaying the scripted segments.
func (s *StubTranscriber) Transcribe(ctx context.Context, audioPath, model string) (transcribe.Stream, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
	return &stubStream{stub: s}, nil
}

// Started reports how many streams were opened.
func (s *StubTranscriber) Started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

type stubStream struct {
	stub *StubTranscriber
	next int
}

func (s *stubStream) Next(ctx context.Context) (transcribe.Segment, error) {
	if err := ctx.Err(); err != nil {
		return transcribe.Segment{}, err
	}
	if s.stub.FailAfter > 0 && s.next == s.stub.FailAfter {
		return transcribe.Segment{}, s.stub.FailErr
	}
	if s.next >= len(s.stub.Segments) {
		return transcribe.Segment{}, io.EOF
	}
	if s.stub.OnSegment != nil {
		s.stub.OnSegment(s.next)
	}
	seg := s.stub.Segments[s.next]
	s.next++
	return seg, nil
}

func (s *stubStream) Close() error { return nil }
