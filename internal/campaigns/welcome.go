package campaigns

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/models"
)

type WelcomeStep struct {
	Step      int
	Key       string
	DayOffset int
}

// WelcomeSteps is the onboarding drip, offsets in days after signup.
var WelcomeSteps = [...]WelcomeStep{
	{Step: 0, Key: "day0", DayOffset: 0},
	{Step: 1, Key: "day2", DayOffset: 2},
	{Step: 2, Key: "day7", DayOffset: 7},
	{Step: 3, Key: "day14", DayOffset: 14},
}

func welcomeMetadata(step WelcomeStep) models.WelcomeMetadata {
	return models.WelcomeMetadata{
		Step:       step.Step,
		Key:        step.Key,
		DayOffset:  step.DayOffset,
		TotalSteps: len(WelcomeSteps),
	}
}

// ScheduleWelcomeSeries queues the first welcome email for immediate
// delivery. It returns a nil job when the user is unknown or opted out.
func (s *Scheduler) ScheduleWelcomeSeries(ctx context.Context, userID string) (*models.EmailJob, error) {
	user, err := s.recipient(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	return s.upsert(ctx, userID, welcomeMetadata(WelcomeSteps[0]), s.Now())
}

// ScheduleNextWelcomeStep queues the step after completedStep relative to
// signupDate. A step whose time has already passed is scheduled for now.
// It returns a nil job once the series is complete or the user opted out.
func (s *Scheduler) ScheduleNextWelcomeStep(ctx context.Context, userID string, completedStep int, signupDate time.Time) (*models.EmailJob, error) {
	next := completedStep + 1
	if next < 0 || next >= len(WelcomeSteps) {
		s.Log.Debug("welcome series complete",
			zap.String("user_id", userID),
			zap.Int("completed_step", completedStep),
		)
		return nil, nil
	}

	user, err := s.recipient(ctx, userID)
	if err != nil || user == nil {
		return nil, err
	}

	step := WelcomeSteps[next]
	at := signupDate.Add(time.Duration(step.DayOffset) * day)
	if now := s.Now(); at.Before(now) {
		at = now
	}

	return s.upsert(ctx, userID, welcomeMetadata(step), at)
}

// CancelWelcomeSeries cancels the user's queued welcome email, if any.
func (s *Scheduler) CancelWelcomeSeries(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.CancelPendingJobs(ctx, userID, models.CampaignWelcome)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.Log.Info("welcome series cancelled",
			zap.String("user_id", userID),
			zap.Int64("cancelled", n),
		)
	}
	return n, nil
}
