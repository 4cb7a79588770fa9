package jobs

import "errors"

// ErrIDConflict is returned when admission finds an existing record for the
// requested job ID. The caller must pick a fresh ID.
var ErrIDConflict = errors.New("job id already in use")

// ErrNotFound is returned for unknown, expired, or swept job IDs. It is
// indistinguishable from "never existed".
var ErrNotFound = errors.New("job not found")
