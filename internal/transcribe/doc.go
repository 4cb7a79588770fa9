// Package transcribe defines the contract between the job executor and the
// external transcription operation.
//
// A Transcriber turns an audio artifact into a Stream: a lazy, ordered
// sequence of timestamped segments. The default implementation shells out to
// a faster-whisper wrapper that prints one JSON segment per stdout line, so
// segments arrive as they are recognized rather than after the whole file is
// processed. A runner hook lets tests substitute canned output for the
// external command.
package transcribe
