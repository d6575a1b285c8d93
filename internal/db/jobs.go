package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ResumeMailer/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `j.id, j.user_id, j.campaign, j.status, j.scheduled_at, j.sent_at, j.error, j.metadata, j.created_at, j.updated_at`

// upsertAttempts bounds the insert/select loop when the pending row we
// collided with is claimed before we can read it back.
const upsertAttempts = 3

// UpsertPendingJob inserts job as the PENDING job for its (user, campaign)
// unless one already exists, in which case the existing row is returned
// untouched. created reports which of the two happened.
func (s *Store) UpsertPendingJob(ctx context.Context, job models.EmailJob) (*models.EmailJob, bool, error) {
	meta, err := models.EncodeMetadata(job.Metadata)
	if err != nil {
		return nil, false, err
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		row := s.Pool.QueryRow(ctx,
			`INSERT INTO email_jobs AS j
			 (id, user_id, campaign, status, scheduled_at, metadata, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
			 ON CONFLICT (user_id, campaign) WHERE status = 'PENDING' DO NOTHING
			 RETURNING `+jobColumns,
			job.ID,
			job.UserID,
			string(job.Campaign),
			string(models.StatusPending),
			job.ScheduledAt,
			meta,
		)

		inserted, err := scanJob(row)
		if err == nil {
			return inserted, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("failed to insert email job: %w", err)
		}

		existing, err := s.pendingJob(ctx, job.UserID, job.Campaign)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	return nil, false, fmt.Errorf("failed to upsert pending %s job for user %s", job.Campaign, job.UserID)
}

func (s *Store) pendingJob(ctx context.Context, userID string, campaign models.Campaign) (*models.EmailJob, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+jobColumns+`
		 FROM email_jobs j
		 WHERE j.user_id = $1 AND j.campaign = $2 AND j.status = 'PENDING'`,
		userID,
		string(campaign),
	)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending job: %w", err)
	}
	return job, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.EmailJob, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM email_jobs j WHERE j.id = $1`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email job: %w", err)
	}
	return job, nil
}

// ListDueJobs returns up to limit PENDING jobs scheduled at or before now,
// oldest first, joined with their recipients.
func (s *Store) ListDueJobs(ctx context.Context, now time.Time, limit int) ([]models.DueJob, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+jobColumns+`, `+userColumns+`
		 FROM email_jobs j
		 JOIN users u ON u.id = j.user_id
		 WHERE j.status = 'PENDING' AND j.scheduled_at <= $1
		 ORDER BY j.scheduled_at ASC
		 LIMIT $2`,
		now,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}
	defer rows.Close()

	var due []models.DueJob
	for rows.Next() {
		var (
			j models.DueJob
			jr jobRow
			ur userRow
		)

		if err := rows.Scan(append(jr.dest(), ur.dest()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan due job: %w", err)
		}

		j.EmailJob = *jr.job()
		j.User = *ur.user()
		due = append(due, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due jobs: %w", err)
	}

	return due, nil
}

// ClaimJob moves a job from PENDING to PROCESSING. It reports false when
// the job was no longer PENDING, meaning another invocation owns it.
func (s *Store) ClaimJob(ctx context.Context, id string) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE email_jobs
		 SET status = 'PROCESSING',
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'PENDING'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return s.finish(ctx,
		`UPDATE email_jobs
		 SET status = 'SENT',
		     sent_at = $2,
		     error = NULL,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'PROCESSING'`,
		id, sentAt,
	)
}

func (s *Store) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	return s.finish(ctx,
		`UPDATE email_jobs
		 SET status = 'FAILED',
		     error = $2,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'PROCESSING'`,
		id, errorMsg,
	)
}

func (s *Store) MarkCancelled(ctx context.Context, id string, reason string) error {
	return s.finish(ctx,
		`UPDATE email_jobs
		 SET status = 'CANCELLED',
		     error = NULLIF($2, ''),
		     updated_at = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')`,
		id, reason,
	)
}

func (s *Store) finish(ctx context.Context, query string, args ...any) error {
	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoTransition
	}
	return nil
}

// CancelPendingJobs cancels every PENDING job of a campaign for a user.
func (s *Store) CancelPendingJobs(ctx context.Context, userID string, campaign models.Campaign) (int64, error) {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE email_jobs
		 SET status = 'CANCELLED',
		     updated_at = NOW()
		 WHERE user_id = $1 AND campaign = $2 AND status = 'PENDING'`,
		userID,
		string(campaign),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RecycleStaleJobs returns PROCESSING jobs untouched since before to
// PENDING. Only the newest stale job per (user, campaign) is recycled and
// only when that pair has no PENDING job; the rest are cancelled as
// superseded.
func (s *Store) RecycleStaleJobs(ctx context.Context, before time.Time) (recycled, superseded int64, err error) {
	rows, err := s.Pool.Query(ctx,
		`WITH stale AS (
		     SELECT j.id,
		            ROW_NUMBER() OVER (PARTITION BY j.user_id, j.campaign ORDER BY j.scheduled_at DESC, j.id) AS rn,
		            EXISTS (
		                SELECT 1 FROM email_jobs p
		                WHERE p.user_id = j.user_id AND p.campaign = j.campaign AND p.status = 'PENDING'
		            ) AS has_pending
		     FROM email_jobs j
		     WHERE j.status = 'PROCESSING' AND j.updated_at < $1
		 )
		 UPDATE email_jobs e
		 SET status = CASE WHEN s.rn = 1 AND NOT s.has_pending THEN 'PENDING' ELSE 'CANCELLED' END,
		     error = CASE WHEN s.rn = 1 AND NOT s.has_pending THEN e.error ELSE $2 END,
		     updated_at = NOW()
		 FROM stale s
		 WHERE e.id = s.id
		 RETURNING e.status`,
		before,
		SupersededReason,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to recycle stale jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, 0, fmt.Errorf("failed to scan recycled job: %w", err)
		}
		if models.EmailStatus(status) == models.StatusPending {
			recycled++
		} else {
			superseded++
		}
	}

	return recycled, superseded, rows.Err()
}

// SupersededReason is recorded on stale jobs cancelled during recycling.
const SupersededReason = "Superseded by a newer pending job"

type jobRow struct {
	id, userID, campaign, status string
	scheduledAt, createdAt       time.Time
	updatedAt                    time.Time
	sentAt                       *time.Time
	errorMsg                     *string
	metadata                     []byte
}

func (r *jobRow) dest() []any {
	return []any{
		&r.id, &r.userID, &r.campaign, &r.status, &r.scheduledAt,
		&r.sentAt, &r.errorMsg, &r.metadata, &r.createdAt, &r.updatedAt,
	}
}

// job never fails on metadata; a payload that does not decode is carried as
// models.InvalidMetadata so one bad row cannot block the due queue.
func (r *jobRow) job() *models.EmailJob {
	campaign := models.Campaign(r.campaign)

	return &models.EmailJob{
		ID:          r.id,
		UserID:      r.userID,
		Campaign:    campaign,
		Status:      models.EmailStatus(r.status),
		Metadata:    models.DecodeMetadataLenient(campaign, r.metadata),
		ScheduledAt: r.scheduledAt,
		SentAt:      r.sentAt,
		Error:       r.errorMsg,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

func scanJob(row pgx.Row) (*models.EmailJob, error) {
	var r jobRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.job(), nil
}
