package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Revision kinds tracked by the mutation counter.
const (
	RevisionJobs        = "jobs"
	RevisionMedia       = "media"
	RevisionCollections = "collections"
	RevisionPodcasts    = "podcasts"
	RevisionSessions    = "sessions"
)

const jobColumns = `id, category, title, source, params, status, progress, eta, throughput,
	error_message, output_path, claimed_by, created_at, started_at, completed_at`

// CreateJob inserts a new job row. ID, Category, and Source must be set;
// Status defaults to queued and CreatedAt to now.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id must not be empty")
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}
	if _, ok := statusSet[job.Status]; !ok {
		return fmt.Errorf("unknown status %q", job.Status)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	params, err := encodeParams(job.Params)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (`+jobColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, string(job.Category), job.Title, job.Source, params,
			string(job.Status), job.Progress, job.ETA, job.Throughput,
			job.ErrorMessage, job.OutputPath, job.ClaimedBy,
			formatTime(job.CreatedAt), nullableTime(job.StartedAt), nullableTime(job.CompletedAt))
		if err != nil {
			if isSQLiteConstraint(err) {
				return fmt.Errorf("%w: job %s: %w", ErrConstraint, job.ID, err)
			}
			return fmt.Errorf("insert job: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
}

// GetJob fetches one job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return job, err
}

// ListJobs returns jobs matching the filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + jobColumns + " FROM jobs"
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(filter.Category))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextQueuedJob returns the oldest queued job of a category, or nil when the
// queue is empty.
func (s *Store) NextQueuedJob(ctx context.Context, category Category) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = ? AND category = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1`,
		string(StatusQueued), string(category))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// MarkJobRunning performs the atomic claim: queued becomes running only when
// the row is still queued, so at most one concurrent caller wins. The boolean
// reports whether this caller won.
func (s *Store) MarkJobRunning(ctx context.Context, id, claimedBy string, startedAt time.Time) (bool, error) {
	var claimed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = ?, claimed_by = ?, started_at = ?, eta = '', throughput = ''
			WHERE id = ? AND status = ?`,
			string(StatusRunning), claimedBy, formatTime(startedAt), id, string(StatusQueued))
		if err != nil {
			return fmt.Errorf("claim job %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim job %s: rows affected: %w", id, err)
		}
		claimed = affected > 0
		if !claimed {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	return claimed, err
}

// UpdateJobProgress records progress for a running job. The stored value
// never decreases. Returns false without error when the job is no longer
// running, which callers treat as benign.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress float64, eta, throughput string) (bool, error) {
	var updated bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET progress = MAX(progress, ?), eta = ?, throughput = ?
			WHERE id = ? AND status = ?`,
			progress, eta, throughput, id, string(StatusRunning))
		if err != nil {
			return fmt.Errorf("update progress %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update progress %s: rows affected: %w", id, err)
		}
		updated = affected > 0
		if !updated {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	return updated, err
}

// FinishJob conditionally moves a job into a terminal state. The transition
// applies only when the current status is one of from; the boolean reports
// whether it did. Completing a job pins progress at 100.
func (s *Store) FinishJob(ctx context.Context, id string, from []Status, to Status, errorMessage, outputPath string) (bool, error) {
	if !to.IsTerminal() {
		return false, fmt.Errorf("status %q is not terminal", to)
	}
	if len(from) == 0 {
		return false, errors.New("no source statuses given")
	}

	args := []any{string(to), errorMessage, outputPath, string(to), formatTime(time.Now().UTC()), id}
	for _, status := range from {
		args = append(args, string(status))
	}

	var finished bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = ?, error_message = ?, output_path = ?,
			    progress = CASE WHEN ? = 'done' THEN 100.0 ELSE progress END,
			    eta = '', throughput = '', completed_at = ?
			WHERE id = ? AND status IN (`+makePlaceholders(len(from))+`)`,
			args...)
		if err != nil {
			return fmt.Errorf("finish job %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("finish job %s: rows affected: %w", id, err)
		}
		finished = affected > 0
		if !finished {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	return finished, err
}

// RequeueOrphanedJobs moves every running job back to queued. Called once at
// daemon startup, before any worker runs, to recover claims held by a dead
// process. Returns the ids that were requeued.
func (s *Store) RequeueOrphanedJobs(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	var ids []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT id FROM jobs WHERE status = ?", string(StatusRunning))
		if err != nil {
			return fmt.Errorf("list running jobs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan running job id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = ?, claimed_by = '', started_at = NULL, progress = 0, eta = '', throughput = ''
			WHERE status = ?`,
			string(StatusQueued), string(StatusRunning))
		if err != nil {
			return fmt.Errorf("requeue running jobs: %w", err)
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteJob removes one job row.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		if !deleted {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return nil
}

// ClearTerminalJobs removes all done, failed, and cancelled jobs and returns
// how many were deleted.
func (s *Store) ClearTerminalJobs(ctx context.Context) (int64, error) {
	var cleared int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM jobs WHERE status IN (?, ?, ?)",
			string(StatusDone), string(StatusFailed), string(StatusCancelled))
		if err != nil {
			return fmt.Errorf("clear terminal jobs: %w", err)
		}
		cleared, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if cleared == 0 {
			return nil
		}
		return bumpRevision(ctx, tx, RevisionJobs)
	})
	return cleared, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job       Job
		category  string
		status    string
		params    string
		createdAt string
		startedAt sql.NullString
		completed sql.NullString
	)
	if err := row.Scan(
		&job.ID, &category, &job.Title, &job.Source, &params, &status,
		&job.Progress, &job.ETA, &job.Throughput, &job.ErrorMessage,
		&job.OutputPath, &job.ClaimedBy, &createdAt, &startedAt, &completed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	parsedStatus, ok := ParseStatus(status)
	if !ok {
		return nil, &CorruptStatusError{JobID: job.ID, Value: status}
	}
	job.Status = parsedStatus
	job.Category = Category(category)

	decoded, err := decodeParams(params)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	job.Params = decoded

	job.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("job %s: created_at: %w", job.ID, err)
	}
	job.StartedAt, err = parseNullTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("job %s: started_at: %w", job.ID, err)
	}
	job.CompletedAt, err = parseNullTime(completed)
	if err != nil {
		return nil, fmt.Errorf("job %s: completed_at: %w", job.ID, err)
	}

	return &job, nil
}

func encodeParams(params map[string]string) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	return string(data), nil
}

func decodeParams(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" || raw == "{}" {
		return nil, nil
	}
	var params map[string]string
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return params, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
