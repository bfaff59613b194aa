package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
)

const jobColumns = `id, kind, user_id, file_id, status, attempts, max_attempts, last_error, run_after, created_at, updated_at, completed_at`

// EnqueueJob persists a queued job and returns its id.
func (p *PostgresDB) EnqueueJob(ctx context.Context, kind models.JobKind, userID, fileID string, maxAttempts int) (int64, error) {
	query := `
        INSERT INTO jobs (kind, user_id, file_id, status, max_attempts)
        VALUES ($1, $2, $3, 'queued', $4)
        RETURNING id
    `
	var id int64
	if err := p.db.QueryRowContext(ctx, query, string(kind), userID, fileID, maxAttempts).Scan(&id); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// ClaimNextJob moves the oldest runnable job to processing and returns it.
// A processing job whose lease has expired is runnable again, which gives
// at-least-once delivery when a worker dies mid-job. Returns nil, nil when
// nothing is runnable.
func (p *PostgresDB) ClaimNextJob(ctx context.Context, lease time.Duration) (*models.Job, error) {
	query := `
        UPDATE jobs
        SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
        WHERE id = (
            SELECT id FROM jobs
            WHERE (status = 'queued' AND run_after <= NOW())
               OR (status = 'processing' AND updated_at < NOW() - make_interval(secs => $1))
            ORDER BY id
            FOR UPDATE SKIP LOCKED
            LIMIT 1
        )
        RETURNING ` + jobColumns

	job, err := scanJob(p.db.QueryRowContext(ctx, query, lease.Seconds()))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (p *PostgresDB) CompleteJob(ctx context.Context, jobID int64) error {
	query := `
        UPDATE jobs
        SET status = 'completed', last_error = '', updated_at = NOW(), completed_at = NOW()
        WHERE id = $1
    `
	return p.execJob(ctx, query, jobID)
}

// FailJob marks a job as permanently failed.
func (p *PostgresDB) FailJob(ctx context.Context, jobID int64, reason string) error {
	query := `
        UPDATE jobs
        SET status = 'failed', last_error = $2, updated_at = NOW()
        WHERE id = $1
    `
	return p.execJob(ctx, query, jobID, reason)
}

// RetryJob requeues a job after backoff, or dead-letters it once its attempts
// are used up. It returns the status the job ended in.
func (p *PostgresDB) RetryJob(ctx context.Context, jobID int64, reason string, backoff time.Duration) (models.JobStatus, error) {
	query := `
        UPDATE jobs
        SET status = CASE WHEN attempts >= max_attempts THEN 'dead_lettered' ELSE 'queued' END,
            last_error = $2,
            run_after = NOW() + make_interval(secs => $3),
            updated_at = NOW()
        WHERE id = $1
        RETURNING status
    `
	var status string
	if err := p.db.QueryRowContext(ctx, query, jobID, reason, backoff.Seconds()).Scan(&status); err != nil {
		return "", notFoundOr(err)
	}
	return models.JobStatus(status), nil
}

// GetJobByFileID returns the most recent job for fileID.
func (p *PostgresDB) GetJobByFileID(ctx context.Context, fileID string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE file_id = $1 ORDER BY id DESC LIMIT 1`
	return scanJob(p.db.QueryRowContext(ctx, query, fileID))
}

func (p *PostgresDB) execJob(ctx context.Context, query string, args ...any) error {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return notFoundOr(sql.ErrNoRows)
	}
	return nil
}
