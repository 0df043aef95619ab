package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcastilho/clientdesk/internal/db"
)

// Repository persists jobs in the same sqlite database as the portal data so
// enqueues share transactions and backups with everything else.
type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository { return &Repository{db: d} }

func nowMs() int64 { return time.Now().UTC().UnixMilli() }

// Enqueue inserts a job and returns its ID. A zero ScheduledAt means "now";
// a future value delays the first pickup.
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}
	if j.MaxAttempts == 0 {
		j.MaxAttempts = 5
	}
	if j.ScheduledAt == 0 {
		j.ScheduledAt = nowMs()
	}

	now := nowMs()
	q := `INSERT INTO jobs (type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt, now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}

	return res.LastInsertId()
}

// FetchNext returns the next runnable job respecting priority and schedule,
// or (nil, nil) when the queue is idle. The returned job is claimed: its
// status is flipped to running atomically, so concurrent workers never pick
// up the same row.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	for {
		j, err := r.nextCandidate(ctx)
		if err != nil || j == nil {
			return nil, err
		}
		claimed, err := r.claim(ctx, j.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			j.Status = StatusRunning
			return j, nil
		}
		// another worker won the claim; look for the next candidate
	}
}

func (r *Repository) nextCandidate(ctx context.Context) (*Job, error) {
	q := `SELECT id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated
		FROM jobs
		WHERE (status = ? OR status = ?) AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
		ORDER BY priority ASC, scheduled_at ASC LIMIT 1`

	now := nowMs()
	row := r.db.QueryRow(ctx, q, StatusQueued, StatusRetry, now, now)

	var (
		j         Job
		payload   sql.NullString
		nextTry   sql.NullInt64
		lastError sql.NullString
	)
	if err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &j.ScheduledAt, &nextTry, &lastError, &j.Created, &j.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		j.NextTryAt = &nextTry.Int64
	}
	if lastError.Valid {
		j.LastError = lastError.String
	}

	return &j, nil
}

// claim marks one job running, guarded on it still being runnable. Zero rows
// affected means another worker got there first.
func (r *Repository) claim(ctx context.Context, id int64) (bool, error) {
	q := `UPDATE jobs SET status = ?, updated = ? WHERE id = ? AND (status = ? OR status = ?)`
	res, err := r.db.Exec(ctx, q, StatusRunning, nowMs(), id, StatusQueued, StatusRetry)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	return n > 0, nil
}

// UpdateJob writes back status, attempts, next_try_at and last_error.
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}

	var nextTry any
	if j.NextTryAt != nil {
		nextTry = *j.NextTryAt
	}

	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	_, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, nowMs(), j.ID)
	return err
}

// MoveToDeadLetter copies a job into dead_letter_jobs and deletes the
// original, in one transaction.
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return err
	}

	insert := `INSERT INTO dead_letter_jobs (job_id, type, payload, attempts, last_error, failed_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, nowMs()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
