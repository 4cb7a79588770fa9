package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cvranjith/faster-whisper/internal/config"
)

// timeLayout is a fixed-width RFC 3339 variant. Fractional seconds are padded
// so stored timestamps order correctly under string comparison, which the
// retention sweep relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database in the work directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.WorkDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts the initial record for a newly admitted job. A record
// already present under the same ID yields ErrIDConflict with no mutation.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if !ValidID(job.ID) {
		return fmt.Errorf("invalid job id %q", job.ID)
	}

	existing, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("job %q: %w", job.ID, ErrIDConflict)
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	timestamp := now.Format(timeLayout)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, status, segments, result, message, cancel,
            audio_path, model, callback_url, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Status,
		job.Segments,
		job.Result,
		nullableString(job.Message),
		boolToInt(job.CancelRequested),
		nullableString(job.AudioPath),
		nullableString(job.Model),
		nullableString(job.CallbackURL),
		timestamp,
		timestamp,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("job %q: %w", job.ID, ErrIDConflict)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by identifier. A missing row returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Save persists the job's current state, recreating the row when the
// retention sweep has already reaped it mid-flight.
func (s *Store) Save(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, status, segments, result, message, cancel,
            audio_path, model, callback_url, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status, segments = excluded.segments,
            result = excluded.result, message = excluded.message,
            audio_path = excluded.audio_path, updated_at = excluded.updated_at`,
		job.ID,
		job.Status,
		job.Segments,
		job.Result,
		nullableString(job.Message),
		boolToInt(job.CancelRequested),
		nullableString(job.AudioPath),
		nullableString(job.Model),
		nullableString(job.CallbackURL),
		orNow(job.CreatedAt).Format(timeLayout),
		job.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// RequestCancel flips the cancel flag for a job. The flag only ever moves
// from false to true; repeat requests are accepted and change nothing.
// Throttled rows never had an execution to stop, so they read as absent
// here; other terminal rows that have not been swept yet still accept the
// request. The returned bool reports whether a cancellable record existed.
func (s *Store) RequestCancel(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET cancel = 1, updated_at = ? WHERE id = ? AND status != ?`,
		time.Now().UTC().Format(timeLayout),
		id,
		StatusThrottled,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CancelRequested reads the cancel flag. A reaped or unknown row reads as
// false so an in-flight executor keeps going after its record is swept.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	var cancel int
	err := s.db.QueryRowContext(ctx, `SELECT cancel FROM jobs WHERE id = ?`, id).Scan(&cancel)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return cancel != 0, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Remove deletes a job record by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SweepOlderThan deletes records last updated before the cutoff, regardless
// of status, and returns the paths of any audio artifacts those rows owned.
func (s *Store) SweepOlderThan(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	cutoffText := cutoff.UTC().Format(timeLayout)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT audio_path FROM jobs WHERE updated_at < ? AND audio_path IS NOT NULL`,
		cutoffText,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("collect swept artifacts: %w", err)
	}
	var artifacts []string
	for rows.Next() {
		var path sql.NullString
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, nil, err
		}
		if path.Valid && path.String != "" {
			artifacts = append(artifacts, path.String)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, nil, err
	}
	_ = rows.Close()

	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE updated_at < ?`, cutoffText)
	if err != nil {
		return 0, nil, fmt.Errorf("sweep jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil, fmt.Errorf("rows affected: %w", err)
	}
	return affected, artifacts, nil
}

const jobColumns = "id, status, segments, result, message, cancel, audio_path, model, callback_url, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		statusStr   string
		segments    int
		result      string
		message     sql.NullString
		cancel      sql.NullInt64
		audioPath   sql.NullString
		model       sql.NullString
		callbackURL sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&segments,
		&result,
		&message,
		&cancel,
		&audioPath,
		&model,
		&callbackURL,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          id,
		Status:      Status(statusStr),
		Segments:    segments,
		Result:      result,
		Message:     message.String,
		AudioPath:   audioPath.String,
		Model:       model.String,
		CallbackURL: callbackURL.String,
	}
	if cancel.Valid {
		job.CancelRequested = cancel.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func orNow(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value.UTC()
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
