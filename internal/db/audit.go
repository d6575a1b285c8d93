package db

import (
	"context"
	"fmt"
	"time"

	"ResumeMailer/internal/models"

	"github.com/google/uuid"
)

// BatchRun is the audit record of one processor invocation.
type BatchRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    models.BatchSummary
	Recycled   int64
}

// DeliveryLog correlates a delivery attempt with the job that caused it.
type DeliveryLog struct {
	ID         string
	EmailJobID string
	UserID     string
	Campaign   models.Campaign
	Recipient  string
	Status     string // sent, failed, skipped
	Error      string
	CreatedAt  time.Time
}

func (s *Store) RecordBatchRun(ctx context.Context, run BatchRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO email_batch_runs
		 (id, started_at, finished_at, processed, sent, failed, skipped, recycled)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.Summary.Processed,
		run.Summary.Sent,
		run.Summary.Failed,
		run.Summary.Skipped,
		run.Recycled,
	)
	if err != nil {
		return fmt.Errorf("failed to record batch run: %w", err)
	}
	return nil
}

func (s *Store) InsertDeliveryLog(ctx context.Context, entry DeliveryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO email_delivery_logs
		 (id, email_job_id, user_id, campaign, recipient, status, error, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7, ''),NOW())`,
		entry.ID,
		entry.EmailJobID,
		entry.UserID,
		string(entry.Campaign),
		entry.Recipient,
		entry.Status,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}
