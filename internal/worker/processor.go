// Package worker drains due email jobs: claim, render, deliver, record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ResumeMailer/internal/campaigns"
	"ResumeMailer/internal/db"
	"ResumeMailer/internal/email"
	"ResumeMailer/internal/metrics"
	"ResumeMailer/internal/models"
	"ResumeMailer/internal/templates"
)

const (
	DefaultBatchSize = 20

	errRenderFailed = "Failed to render email template"
	errSendFailed   = "Failed to send email"
	errOptedOut     = "User opted out of emails"
	errSkipped      = "Delivery skipped"
	errBadMetadata  = "Invalid job metadata"

	defaultWelcomeKey = "day0"
	untitledResume    = "Untitled"
)

type Store interface {
	RecycleStaleJobs(ctx context.Context, before time.Time) (recycled, superseded int64, err error)
	ListDueJobs(ctx context.Context, now time.Time, limit int) ([]models.DueJob, error)
	ClaimJob(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
	MarkCancelled(ctx context.Context, id string, reason string) error
	RecordBatchRun(ctx context.Context, run db.BatchRun) error
}

type Renderer interface {
	Render(ctx context.Context, in templates.RenderInput) (*templates.RenderedEmail, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, msg email.Message) email.DeliveryResult
}

// Welcome chains the next drip step after a successful WELCOME send.
type Welcome interface {
	ScheduleNextWelcomeStep(ctx context.Context, userID string, completedStep int, signupDate time.Time) (*models.EmailJob, error)
}

type Processor struct {
	Store    Store
	Renderer Renderer
	Sender   Deliverer
	Welcome  Welcome
	Log      *zap.Logger
	Now      func() time.Time

	BatchSize  int
	Workers    int
	StaleAfter time.Duration
}

func NewProcessor(store Store, renderer Renderer, sender Deliverer, welcome Welcome, logger *zap.Logger) *Processor {
	return &Processor{
		Store:     store,
		Renderer:  renderer,
		Sender:    sender,
		Welcome:   welcome,
		Log:       logger,
		Now:       time.Now,
		BatchSize: DefaultBatchSize,
		Workers:   1,
	}
}

type outcome int

const (
	// outcomeNotStarted marks a job the pool never handed out; it stays
	// PENDING and is left out of the summary.
	outcomeNotStarted outcome = iota
	outcomeSkipped
	outcomeSent
	outcomeFailed
)

// ProcessEmailJobs runs one batch. Per-job problems are recorded on the job
// and never abort the batch; only failing to fetch the batch is an error.
func (p *Processor) ProcessEmailJobs(ctx context.Context) (models.BatchSummary, error) {
	started := p.Now()
	timer := time.Now()

	recycled := p.recycle(ctx, started)

	limit := p.BatchSize
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	jobs, err := p.Store.ListDueJobs(ctx, started, limit)
	if err != nil {
		return models.BatchSummary{}, fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	if len(jobs) == 0 {
		p.Log.Debug("no due email jobs")
		return models.BatchSummary{}, nil
	}

	outcomes := runPool(ctx, p.Workers, jobs, p.Log, p.processJob)

	var summary models.BatchSummary
	for _, o := range outcomes {
		if o == outcomeNotStarted {
			continue
		}
		summary.Processed++

		switch o {
		case outcomeSent:
			summary.Sent++
		case outcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	metrics.BatchDuration.Observe(time.Since(timer).Seconds())

	run := db.BatchRun{
		StartedAt:  started,
		FinishedAt: p.Now(),
		Summary:    summary,
		Recycled:   recycled,
	}
	if err := p.Store.RecordBatchRun(ctx, run); err != nil {
		p.Log.Error("failed to record batch run", zap.Error(err))
	}

	p.Log.Info("email batch processed",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("recycled", recycled),
	)

	return summary, nil
}

func (p *Processor) recycle(ctx context.Context, now time.Time) int64 {
	if p.StaleAfter <= 0 {
		return 0
	}

	recycled, superseded, err := p.Store.RecycleStaleJobs(ctx, now.Add(-p.StaleAfter))
	if err != nil {
		p.Log.Error("failed to recycle stale jobs", zap.Error(err))
		return 0
	}
	if recycled+superseded > 0 {
		metrics.JobsRecycled.Add(float64(recycled))
		p.Log.Warn("recycled stale processing jobs",
			zap.Int64("recycled", recycled),
			zap.Int64("superseded", superseded),
		)
	}
	return recycled
}

func (p *Processor) processJob(ctx context.Context, due models.DueJob) (out outcome) {
	job := due.EmailJob
	log := p.Log.With(
		zap.String("job_id", job.ID),
		zap.String("user_id", job.UserID),
		zap.String("campaign", string(job.Campaign)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing email job", zap.Any("panic", r))
			p.fail(ctx, log, job, fmt.Sprintf("panic: %v", r))
			out = outcomeFailed
		}
	}()

	claimed, err := p.Store.ClaimJob(ctx, job.ID)
	if err != nil {
		log.Error("failed to claim email job", zap.Error(err))
		metrics.EmailFailures.WithLabelValues(string(job.Campaign)).Inc()
		return outcomeFailed
	}
	if !claimed {
		log.Info("email job claimed elsewhere")
		metrics.EmailsSkipped.WithLabelValues(string(job.Campaign), "claim_lost").Inc()
		return outcomeSkipped
	}

	if bad, ok := job.Metadata.(models.InvalidMetadata); ok {
		log.Warn("email job metadata does not decode", zap.Error(bad.Err))
		p.fail(ctx, log, job, fmt.Sprintf("%s: %v", errBadMetadata, bad.Err))
		return outcomeFailed
	}

	if due.User.EmailOptOut {
		p.cancel(ctx, log, job, errOptedOut, "opted_out")
		return outcomeSkipped
	}

	rendered, err := p.Renderer.Render(ctx, renderInput(due))
	if err != nil {
		log.Warn("failed to render email", zap.Error(err))
		p.fail(ctx, log, job, errRenderFailed)
		return outcomeFailed
	}

	res := p.Sender.Deliver(ctx, email.Message{
		EmailJobID: job.ID,
		UserID:     job.UserID,
		Campaign:   job.Campaign,
		To:         due.User.Email,
		Subject:    rendered.Subject,
		HTML:       rendered.HTML,
	})

	switch {
	case res.Skipped:
		reason := res.Error
		if reason == "" {
			reason = errSkipped
		}
		p.cancel(ctx, log, job, reason, "delivery")
		return outcomeSkipped

	case !res.Success:
		msg := res.Error
		if msg == "" {
			msg = errSendFailed
		}
		log.Error("email send failed", zap.String("error", msg))
		p.fail(ctx, log, job, msg)
		return outcomeFailed
	}

	if err := p.Store.MarkSent(ctx, job.ID, p.Now()); err != nil {
		log.Error("failed to mark email job sent", zap.Error(err))
		p.fail(ctx, log, job, err.Error())
		return outcomeFailed
	}

	metrics.EmailsSent.WithLabelValues(string(job.Campaign)).Inc()
	log.Info("email sent successfully")

	if job.Campaign == models.CampaignWelcome && p.Welcome != nil {
		p.chainWelcome(ctx, log, due)
	}

	return outcomeSent
}

// chainWelcome queues the next drip step. The job is already SENT, so
// nothing here may change its outcome.
func (p *Processor) chainWelcome(ctx context.Context, log *zap.Logger, due models.DueJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while scheduling next welcome step", zap.Any("panic", r))
		}
	}()

	step := 0
	if meta, ok := due.Metadata.(models.WelcomeMetadata); ok {
		step = meta.Step
	}

	next, err := p.Welcome.ScheduleNextWelcomeStep(ctx, due.UserID, step, due.User.CreatedAt)
	if err != nil {
		log.Error("failed to schedule next welcome step", zap.Error(err))
		return
	}
	if next != nil {
		log.Info("next welcome step scheduled",
			zap.String("next_job_id", next.ID),
			zap.Time("scheduled_at", next.ScheduledAt),
		)
	}
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, job models.EmailJob, msg string) {
	metrics.EmailFailures.WithLabelValues(string(job.Campaign)).Inc()
	if err := p.Store.MarkFailed(ctx, job.ID, msg); err != nil {
		if errors.Is(err, db.ErrNoTransition) {
			log.Warn("email job no longer processing", zap.Error(err))
			return
		}
		log.Error("failed to update failure status", zap.Error(err))
	}
}

func (p *Processor) cancel(ctx context.Context, log *zap.Logger, job models.EmailJob, reason, label string) {
	metrics.EmailsSkipped.WithLabelValues(string(job.Campaign), label).Inc()
	log.Info("email job cancelled", zap.String("reason", reason))
	if err := p.Store.MarkCancelled(ctx, job.ID, reason); err != nil {
		log.Error("failed to update cancelled status", zap.Error(err))
	}
}

// renderInput maps a job onto the renderer's variant and placeholders.
func renderInput(due models.DueJob) templates.RenderInput {
	in := templates.RenderInput{
		Campaign: due.Campaign,
		Locale:   due.User.Locale(),
		UserID:   due.User.ID,
		Name:     due.User.Name,
	}

	switch meta := due.Metadata.(type) {
	case models.WelcomeMetadata:
		in.Variant = meta.Key
	case models.AbandonedMetadata:
		in.ResumeID = meta.ResumeID
		in.ResumeTitle = meta.ResumeTitle
		in.Completion = meta.Completion
		in.LastEditedAt = meta.LastEditedAt
	case models.ReengagementMetadata:
		in.Variant = campaigns.ReengagementVariant(meta.Threshold)
		in.InactiveDays = meta.InactiveDays
	}

	switch due.Campaign {
	case models.CampaignWelcome:
		if in.Variant == "" {
			in.Variant = defaultWelcomeKey
		}
	case models.CampaignAbandonedResume:
		if in.ResumeTitle == "" {
			in.ResumeTitle = untitledResume
		}
	case models.CampaignReengagement:
		if in.Variant == "" {
			in.Variant = campaigns.ReengagementVariant(0)
		}
	}

	return in
}
