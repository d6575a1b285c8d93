package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ResumeMailer/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `u.id, COALESCE(u.email, ''), COALESCE(u.name, ''), COALESCE(u.email_opt_out, FALSE), u.email_preferences, u.created_at, u.last_login_at`

// InactiveUserQuery selects re-engagement candidates.
type InactiveUserQuery struct {
	LastLoginBefore time.Time // inclusive
	SentSince       time.Time // SENT jobs at or after this block the user
	Limit           int
}

// AbandonedResumeQuery selects draft resumes last touched inside a window.
type AbandonedResumeQuery struct {
	UpdatedFrom time.Time // inclusive
	UpdatedTo   time.Time // inclusive
	SentSince   time.Time
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var r userRow
	err := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id).Scan(r.dest()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return r.user(), nil
}

// FindInactiveUsers returns opted-in users whose last login is at or before
// q.LastLoginBefore and who have no active or recently sent RE_ENGAGEMENT
// job, most inactive first.
func (s *Store) FindInactiveUsers(ctx context.Context, q InactiveUserQuery) ([]models.User, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.email_opt_out = FALSE
		   AND u.last_login_at IS NOT NULL
		   AND u.last_login_at <= $1
		   AND NOT EXISTS (
		       SELECT 1 FROM email_jobs j
		       WHERE j.user_id = u.id
		         AND j.campaign = 'RE_ENGAGEMENT'
		         AND (j.status IN ('PENDING', 'PROCESSING') OR (j.status = 'SENT' AND j.sent_at >= $2))
		   )
		 ORDER BY u.last_login_at ASC
		 LIMIT $3`,
		q.LastLoginBefore,
		q.SentSince,
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find inactive users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var r userRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *r.user())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// FindDraftResumes returns DRAFT resumes updated inside the query window
// whose owners are opted in and have no active or recently sent
// ABANDONED_RESUME job, newest first.
func (s *Store) FindDraftResumes(ctx context.Context, q AbandonedResumeQuery) ([]models.AbandonedResume, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT r.id, r.user_id, r.status, r.title, r.updated_at, `+userColumns+`
		 FROM resumes r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.status = 'DRAFT'
		   AND r.updated_at >= $1
		   AND r.updated_at <= $2
		   AND u.email_opt_out = FALSE
		   AND NOT EXISTS (
		       SELECT 1 FROM email_jobs j
		       WHERE j.user_id = r.user_id
		         AND j.campaign = 'ABANDONED_RESUME'
		         AND (j.status IN ('PENDING', 'PROCESSING') OR (j.status = 'SENT' AND j.sent_at >= $3))
		   )
		 ORDER BY r.updated_at DESC`,
		q.UpdatedFrom,
		q.UpdatedTo,
		q.SentSince,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find draft resumes: %w", err)
	}
	defer rows.Close()

	var out []models.AbandonedResume
	for rows.Next() {
		var (
			res    models.Resume
			status string
			ur     userRow
		)

		dest := append([]any{&res.ID, &res.UserID, &status, &res.Title, &res.UpdatedAt}, ur.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		res.Status = models.ResumeStatus(status)

		out = append(out, models.AbandonedResume{Resume: res, User: *ur.user()})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resumes: %w", err)
	}

	return out, nil
}

type userRow struct {
	id, email, name string
	optOut          bool
	prefs           []byte
	createdAt       time.Time
	lastLoginAt     *time.Time
}

func (r *userRow) dest() []any {
	return []any{&r.id, &r.email, &r.name, &r.optOut, &r.prefs, &r.createdAt, &r.lastLoginAt}
}

// user ignores preferences that do not decode; the user then gets the
// default locale instead of dropping out of every query.
func (r *userRow) user() *models.User {
	u := &models.User{
		ID:          r.id,
		Email:       r.email,
		Name:        r.name,
		EmailOptOut: r.optOut,
		CreatedAt:   r.createdAt,
		LastLoginAt: r.lastLoginAt,
	}

	if len(r.prefs) > 0 {
		if err := json.Unmarshal(r.prefs, &u.EmailPreferences); err != nil {
			u.EmailPreferences = models.EmailPreferences{}
		}
	}

	return u
}
