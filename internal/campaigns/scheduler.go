// Package campaigns decides which users should receive which automated
// email and queues the corresponding jobs.
//
// Every scheduling call goes through the store's insert-if-absent upsert, so
// calling any of them repeatedly for the same user and campaign leaves a
// single PENDING job.
package campaigns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/db"
	"ResumeMailer/internal/metrics"
	"ResumeMailer/internal/models"
)

// Store is the persistence surface the schedulers need. Both db.Store and
// db.MemoryStore satisfy it.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpsertPendingJob(ctx context.Context, job models.EmailJob) (*models.EmailJob, bool, error)
	CancelPendingJobs(ctx context.Context, userID string, campaign models.Campaign) (int64, error)
	FindDraftResumes(ctx context.Context, q db.AbandonedResumeQuery) ([]models.AbandonedResume, error)
	FindInactiveUsers(ctx context.Context, q db.InactiveUserQuery) ([]models.User, error)
}

type Scheduler struct {
	Store Store
	Log   *zap.Logger
	Now   func() time.Time
}

func NewScheduler(store Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Store: store,
		Log:   logger,
		Now:   time.Now,
	}
}

// ScheduleReport summarises a detector sweep.
type ScheduleReport struct {
	Found     int `json:"found"`
	Scheduled int `json:"scheduled"`
	Failed    int `json:"failed"`
}

const day = 24 * time.Hour

// recipient loads the user and applies the opt-out kill switch. A nil user
// with a nil error means "do not schedule".
func (s *Scheduler) recipient(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	if user.EmailOptOut {
		return nil, nil
	}
	return user, nil
}

func (s *Scheduler) upsert(ctx context.Context, userID string, meta models.JobMetadata, at time.Time) (*models.EmailJob, error) {
	campaign := meta.Campaign()

	job, created, err := s.Store.UpsertPendingJob(ctx, models.EmailJob{
		UserID:      userID,
		Campaign:    campaign,
		ScheduledAt: at,
		Metadata:    meta,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %s for %s: %w", campaign, userID, err)
	}

	if created {
		metrics.JobsScheduled.WithLabelValues(string(campaign)).Inc()
		s.Log.Info("email job scheduled",
			zap.String("job_id", job.ID),
			zap.String("user_id", userID),
			zap.String("campaign", string(campaign)),
			zap.Time("scheduled_at", job.ScheduledAt),
		)
	} else {
		s.Log.Debug("pending email job already exists",
			zap.String("job_id", job.ID),
			zap.String("user_id", userID),
			zap.String("campaign", string(campaign)),
		)
	}

	return job, nil
}
