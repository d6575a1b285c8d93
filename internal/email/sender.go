// Package email hands rendered messages to SMTP.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"ResumeMailer/internal/db"
	"ResumeMailer/internal/models"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Guard is satisfied by *RedisGuard.
type Guard interface {
	Suppressed(ctx context.Context, addr string) (bool, error)
	MarkDelivered(ctx context.Context, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) error
}

type LogWriter interface {
	InsertDeliveryLog(ctx context.Context, entry db.DeliveryLog) error
}

type Message struct {
	EmailJobID string
	UserID     string
	Campaign   models.Campaign
	To         string
	Subject    string
	HTML       string
}

type DeliveryResult struct {
	Success bool
	Skipped bool
	Error   string
}

const (
	skipNoRecipient = "recipient has no email address"
	skipSuppressed  = "recipient is on the suppression list"
	skipDuplicate   = "email already delivered for this job"
)

type Sender struct {
	Dialer  Dialer
	From    string
	Limiter *rate.Limiter
	Retries int

	// Optional. Without a guard there is no suppression or dedupe check.
	Guard Guard
	Logs  LogWriter

	Log *zap.Logger

	// Backoff builds the retry policy for one send.
	Backoff func() backoff.BackOff
}

func NewSender(host string, port int, user, password, from string, perSecond, retries int, logger *zap.Logger) *Sender {
	return &Sender{
		Dialer:  gomail.NewDialer(host, port, user, password),
		From:    from,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
		Retries: retries,
		Log:     logger,
		Backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

func (s *Sender) Deliver(ctx context.Context, msg Message) DeliveryResult {
	res := s.deliver(ctx, msg)
	s.record(ctx, msg, res)
	return res
}

func (s *Sender) deliver(ctx context.Context, msg Message) DeliveryResult {
	if msg.To == "" {
		return DeliveryResult{Skipped: true, Error: skipNoRecipient}
	}

	if s.Guard != nil {
		suppressed, err := s.Guard.Suppressed(ctx, msg.To)
		if err != nil {
			// The list is advisory; an unavailable Redis must not stop mail.
			s.Log.Warn("suppression lookup failed", zap.String("job_id", msg.EmailJobID), zap.Error(err))
		} else if suppressed {
			return DeliveryResult{Skipped: true, Error: skipSuppressed}
		}

		first, err := s.Guard.MarkDelivered(ctx, msg.EmailJobID)
		if err != nil {
			s.Log.Warn("delivery marker failed", zap.String("job_id", msg.EmailJobID), zap.Error(err))
		} else if !first {
			return DeliveryResult{Skipped: true, Error: skipDuplicate}
		}
	}

	if err := s.sendWithRetry(ctx, msg); err != nil {
		if s.Guard != nil {
			if relErr := s.Guard.Release(ctx, msg.EmailJobID); relErr != nil {
				s.Log.Warn("failed to release delivery marker", zap.String("job_id", msg.EmailJobID), zap.Error(relErr))
			}
		}
		return DeliveryResult{Error: err.Error()}
	}

	return DeliveryResult{Success: true}
}

func (s *Sender) send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}
	return nil
}

// sendWithRetry waits for a rate token and retries the send with backoff.
func (s *Sender) sendWithRetry(ctx context.Context, msg Message) error {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	operation := func() error {
		return s.send(msg)
	}

	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if s.Backoff != nil {
		b = s.Backoff()
	}
	b = backoff.WithMaxRetries(b, uint64(max(s.Retries, 0)))

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

func (s *Sender) record(ctx context.Context, msg Message, res DeliveryResult) {
	if s.Logs == nil {
		return
	}

	status := "sent"
	switch {
	case res.Skipped:
		status = "skipped"
	case !res.Success:
		status = "failed"
	}

	err := s.Logs.InsertDeliveryLog(ctx, db.DeliveryLog{
		EmailJobID: msg.EmailJobID,
		UserID:     msg.UserID,
		Campaign:   msg.Campaign,
		Recipient:  msg.To,
		Status:     status,
		Error:      res.Error,
	})
	if err != nil {
		s.Log.Warn("failed to write delivery log", zap.String("job_id", msg.EmailJobID), zap.Error(err))
	}
}
