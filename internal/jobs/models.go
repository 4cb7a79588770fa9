package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a transcription job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusThrottled  Status = "throttled"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"

	// StatusNotFound is a projection for unknown or expired IDs. It is
	// returned to callers but never stored.
	StatusNotFound Status = "not_found"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusThrottled,
	StatusDone,
	StatusCancelled,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusThrottled: {},
	StatusDone:      {},
	StatusCancelled: {},
	StatusError:     {},
}

// Job represents a transcription job persisted in SQLite.
type Job struct {
	ID              string
	Status          Status
	Segments        int
	Result          string
	Message         string
	CancelRequested bool
	AudioPath       string
	Model           string
	CallbackURL     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of storable statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known storable Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transition leaves the status.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

const maxIDLength = 128

// ValidID reports whether id is usable as a filesystem- and key-safe token.
// Letters, digits, '.', '-', and '_' are allowed; a leading '.' is not.
func ValidID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	if id[0] == '.' {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
