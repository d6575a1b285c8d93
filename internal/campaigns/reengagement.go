package campaigns

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/db"
	"ResumeMailer/internal/models"
)

const (
	DefaultInactiveThreshold = 30
	DefaultInactiveLimit     = 100

	reengagementCooldown = 30 * day
)

// ReengagementThresholds are the inactivity cohorts in days, largest first.
var ReengagementThresholds = []int{90, 60, 30}

// InactivityBucket returns the largest cohort inactiveDays qualifies for,
// or fallback when it is below every cohort.
func InactivityBucket(inactiveDays, fallback int) int {
	for _, t := range ReengagementThresholds {
		if inactiveDays >= t {
			return t
		}
	}
	return fallback
}

// ReengagementVariant maps a threshold to its template variant
// ("90d", "60d" or "30d") using the same cohort table as InactivityBucket.
func ReengagementVariant(threshold int) string {
	for _, t := range ReengagementThresholds {
		if threshold >= t {
			return fmt.Sprintf("%dd", t)
		}
	}
	return fmt.Sprintf("%dd", ReengagementThresholds[len(ReengagementThresholds)-1])
}

// InactiveDays counts whole days between lastLogin and now.
func InactiveDays(lastLogin, now time.Time) int {
	if now.Before(lastLogin) {
		return 0
	}
	return int(now.Sub(lastLogin) / day)
}

// FindInactiveUsers returns up to limit opted-in users who have not logged
// in for threshold days, most inactive first, each classified into the
// largest cohort they qualify for. Users without a recorded login are never
// returned.
func (s *Scheduler) FindInactiveUsers(ctx context.Context, threshold, limit int) ([]models.InactiveUser, error) {
	if threshold <= 0 {
		threshold = DefaultInactiveThreshold
	}
	if limit <= 0 {
		limit = DefaultInactiveLimit
	}

	now := s.Now()
	users, err := s.Store.FindInactiveUsers(ctx, db.InactiveUserQuery{
		LastLoginBefore: now.Add(-time.Duration(threshold) * day),
		SentSince:       now.Add(-reengagementCooldown),
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.InactiveUser, 0, len(users))
	for _, u := range users {
		if u.LastLoginAt == nil {
			continue
		}
		days := InactiveDays(*u.LastLoginAt, now)
		out = append(out, models.InactiveUser{
			User:         u,
			InactiveDays: days,
			Threshold:    InactivityBucket(days, threshold),
		})
	}

	return out, nil
}

// ScheduleReengagementEmail queues an immediate win-back email.
func (s *Scheduler) ScheduleReengagementEmail(ctx context.Context, userID string, threshold, inactiveDays int) (*models.EmailJob, error) {
	user, err := s.recipient(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	return s.upsert(ctx, userID, models.ReengagementMetadata{
		Threshold:    threshold,
		InactiveDays: inactiveDays,
	}, s.Now())
}

// ScheduleReengagement runs the inactivity detector and queues an email for
// every user it returns.
func (s *Scheduler) ScheduleReengagement(ctx context.Context, threshold, limit int) (ScheduleReport, error) {
	candidates, err := s.FindInactiveUsers(ctx, threshold, limit)
	if err != nil {
		return ScheduleReport{}, err
	}

	report := ScheduleReport{Found: len(candidates)}
	for _, c := range candidates {
		job, err := s.ScheduleReengagementEmail(ctx, c.User.ID, c.Threshold, c.InactiveDays)
		if err != nil {
			report.Failed++
			s.Log.Error("failed to schedule re-engagement email",
				zap.String("user_id", c.User.ID),
				zap.Error(err),
			)
			continue
		}
		if job != nil {
			report.Scheduled++
		}
	}

	s.Log.Info("re-engagement sweep complete",
		zap.Int("threshold", threshold),
		zap.Int("found", report.Found),
		zap.Int("scheduled", report.Scheduled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
