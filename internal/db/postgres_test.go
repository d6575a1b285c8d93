package db

import (
	"context"
	"os"
	"testing"
	"time"

	"ResumeMailer/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to TEST_DATABASE_URL, migrates it and seeds one user.
// The test is skipped when no database is reachable.
func testStore(t *testing.T) (*Store, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test - TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	store, err := New(ctx, url)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(store.Close)

	require.NoError(t, RunMigrations(url))

	userID := "test-" + uuid.NewString()
	_, err = store.Pool.Exec(ctx,
		`INSERT INTO users (id, email, name, email_preferences, created_at, last_login_at)
		 VALUES ($1, $2, 'Test', '{"locale":"ar"}', NOW(), NOW() - INTERVAL '95 days')`,
		userID, userID+"@example.com",
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = store.Pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})

	return store, userID
}

func TestStore_UpsertPendingJob(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()

	job := models.EmailJob{
		UserID:      userID,
		Campaign:    models.CampaignWelcome,
		ScheduledAt: time.Now(),
		Metadata:    models.WelcomeMetadata{Step: 0, Key: "day0", TotalSteps: 4},
	}

	first, created, err := store.UpsertPendingJob(ctx, job)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.UpsertPendingJob(ctx, job)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.WelcomeMetadata{Step: 0, Key: "day0", TotalSteps: 4}, second.Metadata)
}

func TestStore_ClaimAndFinish(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()

	job, _, err := store.UpsertPendingJob(ctx, models.EmailJob{
		UserID:      userID,
		Campaign:    models.CampaignReengagement,
		ScheduledAt: time.Now().Add(-time.Minute),
		Metadata:    models.ReengagementMetadata{Threshold: 90, InactiveDays: 95},
	})
	require.NoError(t, err)

	due, err := store.ListDueJobs(ctx, time.Now(), 100)
	require.NoError(t, err)

	var found *models.DueJob
	for i := range due {
		if due[i].ID == job.ID {
			found = &due[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.LocaleArabic, found.User.Locale())

	ok, err := store.ClaimJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ClaimJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkSent(ctx, job.ID, time.Now()))
	assert.ErrorIs(t, store.MarkFailed(ctx, job.ID, "late failure"), ErrNoTransition)

	users, err := store.FindInactiveUsers(ctx, InactiveUserQuery{
		LastLoginBefore: time.Now().AddDate(0, 0, -30),
		SentSince:       time.Now().AddDate(0, 0, -30),
		Limit:           1000,
	})
	require.NoError(t, err)
	for _, u := range users {
		assert.NotEqual(t, userID, u.ID, "recently sent user must be excluded")
	}
}

func insertJob(t *testing.T, store *Store, userID string, campaign models.Campaign, status models.EmailStatus, scheduledAt, updatedAt time.Time, metadata string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := store.Pool.Exec(context.Background(),
		`INSERT INTO email_jobs (id, user_id, campaign, status, scheduled_at, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, userID, string(campaign), string(status), scheduledAt, metadata, updatedAt,
	)
	require.NoError(t, err)
	return id
}

func TestStore_ListDueJobsKeepsUndecodableRow(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()
	now := time.Now()

	id := insertJob(t, store, userID, models.CampaignWelcome, models.StatusPending, now.Add(-time.Minute), now, `{"step":"1","key":"day2"}`)

	due, err := store.ListDueJobs(ctx, now, 1000)
	require.NoError(t, err)

	var found *models.DueJob
	for i := range due {
		if due[i].ID == id {
			found = &due[i]
		}
	}
	require.NotNil(t, found)
	_, ok := found.Metadata.(models.InvalidMetadata)
	assert.True(t, ok, "got %T", found.Metadata)
}

func TestStore_RecycleStaleJobs(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()
	now := time.Now()

	stuck := insertJob(t, store, userID, models.CampaignWelcome, models.StatusProcessing, now.Add(-time.Hour), now.Add(-time.Hour), `{}`)
	older := insertJob(t, store, userID, models.CampaignWelcome, models.StatusProcessing, now.Add(-2*time.Hour), now.Add(-2*time.Hour), `{}`)
	busy := insertJob(t, store, userID, models.CampaignReengagement, models.StatusProcessing, now.Add(-time.Minute), now.Add(-time.Minute), `{}`)
	shadowed := insertJob(t, store, userID, models.CampaignAbandonedResume, models.StatusProcessing, now.Add(-time.Hour), now.Add(-time.Hour), `{}`)
	newer := insertJob(t, store, userID, models.CampaignAbandonedResume, models.StatusPending, now, now, `{}`)

	recycled, superseded, err := store.RecycleStaleJobs(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, recycled, int64(1))
	assert.GreaterOrEqual(t, superseded, int64(2))

	want := map[string]models.EmailStatus{
		stuck:    models.StatusPending,
		older:    models.StatusCancelled,
		busy:     models.StatusProcessing,
		shadowed: models.StatusCancelled,
		newer:    models.StatusPending,
	}
	for id, status := range want {
		job, err := store.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, job.Status, id)
		if status == models.StatusCancelled {
			require.NotNil(t, job.Error)
			assert.Equal(t, SupersededReason, *job.Error)
		}
	}
}

func TestStore_FindDraftResumes(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()
	now := time.Now()

	resumes := []struct {
		id     string
		status string
		age    time.Duration
	}{
		{"fresh", "DRAFT", 23 * time.Hour},
		{"stale", "DRAFT", 30 * time.Hour},
		{"too-old", "DRAFT", 49 * time.Hour},
		{"published", "PUBLISHED", 30 * time.Hour},
	}
	for _, r := range resumes {
		_, err := store.Pool.Exec(ctx,
			`INSERT INTO resumes (id, user_id, status, title, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			userID+"-"+r.id, userID, r.status, "Resume "+r.id, now.Add(-r.age),
		)
		require.NoError(t, err)
	}

	q := AbandonedResumeQuery{
		UpdatedFrom: now.Add(-48 * time.Hour),
		UpdatedTo:   now.Add(-24 * time.Hour),
		SentSince:   now.Add(-7 * 24 * time.Hour),
	}

	mine := func() []string {
		found, err := store.FindDraftResumes(ctx, q)
		require.NoError(t, err)
		var ids []string
		for _, f := range found {
			if f.User.ID == userID {
				ids = append(ids, f.Resume.ID)
			}
		}
		return ids
	}

	assert.Equal(t, []string{userID + "-stale"}, mine())

	jobID := insertJob(t, store, userID, models.CampaignAbandonedResume, models.StatusSent, now.Add(-6*24*time.Hour), now, `{}`)
	_, err := store.Pool.Exec(ctx, `UPDATE email_jobs SET sent_at = $2 WHERE id = $1`, jobID, now.Add(-6*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, mine(), "reminder sent six days ago blocks another")

	_, err = store.Pool.Exec(ctx, `UPDATE email_jobs SET sent_at = $2 WHERE id = $1`, jobID, now.Add(-8*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{userID + "-stale"}, mine())

	insertJob(t, store, userID, models.CampaignAbandonedResume, models.StatusPending, now.Add(time.Hour), now, `{}`)
	assert.Empty(t, mine(), "queued reminder blocks another")
}

func TestStore_FindInactiveUsers(t *testing.T) {
	store, userID := testStore(t)
	ctx := context.Background()
	now := time.Now()

	q := InactiveUserQuery{
		LastLoginBefore: now.AddDate(0, 0, -30),
		SentSince:       now.AddDate(0, 0, -30),
		Limit:           1000,
	}

	includes := func() bool {
		users, err := store.FindInactiveUsers(ctx, q)
		require.NoError(t, err)
		for _, u := range users {
			if u.ID == userID {
				assert.Equal(t, models.LocaleArabic, u.Locale())
				return true
			}
		}
		return false
	}

	assert.True(t, includes())

	jobID := insertJob(t, store, userID, models.CampaignReengagement, models.StatusPending, now, now, `{}`)
	assert.False(t, includes(), "pending re-engagement job blocks the user")

	_, err := store.Pool.Exec(ctx, `UPDATE email_jobs SET status = 'SENT', sent_at = $2 WHERE id = $1`, jobID, now.AddDate(0, 0, -31))
	require.NoError(t, err)
	assert.True(t, includes(), "cooldown has passed")

	insertJob(t, store, userID, models.CampaignWelcome, models.StatusPending, now, now, `{}`)
	assert.True(t, includes(), "other campaigns never block")

	q.LastLoginBefore = now.AddDate(0, 0, -100)
	assert.False(t, includes(), "last login is inside the threshold")
}
