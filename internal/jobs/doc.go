// Package jobs persists transcription job state in SQLite and exposes helpers
// for driving the job lifecycle.
//
// The Store manages database connections, schema initialization, admission
// inserts, progress checkpoints, the one-way cancel flag, and the age-based
// retention sweep. Each job row has a single writer (the executor assigned to
// it) and any number of polling readers; SQLite's WAL journal gives readers an
// atomic view of every record, so no additional locking is layered on top.
//
// Treat this package as the single source of truth for job semantics; when you
// add new statuses or columns, update schema.sql and bump schemaVersion.
package jobs
