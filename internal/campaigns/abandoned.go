package campaigns

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/db"
	"ResumeMailer/internal/models"
)

const (
	// Drafts younger than this are still being worked on.
	abandonedMinAge   = 24 * time.Hour
	abandonedMaxAge   = 48 * time.Hour
	abandonedCooldown = 7 * day
)

// FindAbandonedResumes returns at most one stale draft per user: the most
// recently updated DRAFT last touched between 24 and 48 hours ago, for
// users who are opted in and were not reminded in the last 7 days.
func (s *Scheduler) FindAbandonedResumes(ctx context.Context) ([]models.AbandonedResume, error) {
	now := s.Now()

	drafts, err := s.Store.FindDraftResumes(ctx, db.AbandonedResumeQuery{
		UpdatedFrom: now.Add(-abandonedMaxAge),
		UpdatedTo:   now.Add(-abandonedMinAge),
		SentSince:   now.Add(-abandonedCooldown),
	})
	if err != nil {
		return nil, err
	}

	return latestPerUser(drafts), nil
}

// latestPerUser keeps the newest draft per user. Ties keep the first seen.
func latestPerUser(drafts []models.AbandonedResume) []models.AbandonedResume {
	idx := make(map[string]int, len(drafts))
	out := make([]models.AbandonedResume, 0, len(drafts))

	for _, d := range drafts {
		i, seen := idx[d.Resume.UserID]
		if !seen {
			idx[d.Resume.UserID] = len(out)
			out = append(out, d)
			continue
		}
		if d.Resume.UpdatedAt.After(out[i].Resume.UpdatedAt) {
			out[i] = d
		}
	}

	return out
}

// ScheduleAbandonedResumeEmail queues an immediate reminder about one draft.
func (s *Scheduler) ScheduleAbandonedResumeEmail(ctx context.Context, userID, resumeID, resumeTitle string) (*models.EmailJob, error) {
	return s.scheduleAbandoned(ctx, userID, models.AbandonedMetadata{
		ResumeID:    resumeID,
		ResumeTitle: resumeTitle,
	})
}

func (s *Scheduler) scheduleAbandoned(ctx context.Context, userID string, meta models.AbandonedMetadata) (*models.EmailJob, error) {
	user, err := s.recipient(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}
	return s.upsert(ctx, userID, meta, s.Now())
}

// ScheduleAbandonedResumes runs the detector and queues a reminder for
// every candidate. One candidate failing does not stop the sweep.
func (s *Scheduler) ScheduleAbandonedResumes(ctx context.Context) (ScheduleReport, error) {
	candidates, err := s.FindAbandonedResumes(ctx)
	if err != nil {
		return ScheduleReport{}, err
	}

	report := ScheduleReport{Found: len(candidates)}
	for _, c := range candidates {
		edited := c.Resume.UpdatedAt
		job, err := s.scheduleAbandoned(ctx, c.User.ID, models.AbandonedMetadata{
			ResumeID:     c.Resume.ID,
			ResumeTitle:  c.Resume.Title,
			LastEditedAt: &edited,
		})
		if err != nil {
			report.Failed++
			s.Log.Error("failed to schedule abandoned resume email",
				zap.String("user_id", c.User.ID),
				zap.String("resume_id", c.Resume.ID),
				zap.Error(err),
			)
			continue
		}
		if job != nil {
			report.Scheduled++
		}
	}

	s.Log.Info("abandoned resume sweep complete",
		zap.Int("found", report.Found),
		zap.Int("scheduled", report.Scheduled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
