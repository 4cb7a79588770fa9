// Package worker runs admitted transcription jobs.
//
// The Limiter is a bounded channel token pool deciding whether a submission
// executes or terminates as throttled; acquisition never blocks. The Executor
// consumes the segment stream for one job: it polls the cancel flag at every
// segment boundary, checkpoints progress on a fixed cadence, finalizes the
// terminal state, deletes the audio artifact on every exit path, fires the
// completion callback, and releases its permit in a deferred block regardless
// of how execution ends.
package worker
