package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ResumeMailer/internal/campaigns"
	"ResumeMailer/internal/email"
	"ResumeMailer/internal/models"
)

const testSecret = "s3cret"

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type mockProcessor struct {
	calls   int
	summary models.BatchSummary
	err     error
}

func (m *mockProcessor) ProcessEmailJobs(context.Context) (models.BatchSummary, error) {
	m.calls++
	return m.summary, m.err
}

type mockScheduler struct {
	welcomed  []string
	cancelled []string
	threshold int
	limit     int
	report    campaigns.ScheduleReport
	job       *models.EmailJob
}

func (m *mockScheduler) ScheduleWelcomeSeries(_ context.Context, userID string) (*models.EmailJob, error) {
	m.welcomed = append(m.welcomed, userID)
	return m.job, nil
}

func (m *mockScheduler) CancelWelcomeSeries(_ context.Context, userID string) (int64, error) {
	m.cancelled = append(m.cancelled, userID)
	return 1, nil
}

func (m *mockScheduler) ScheduleAbandonedResumes(context.Context) (campaigns.ScheduleReport, error) {
	return m.report, nil
}

func (m *mockScheduler) ScheduleReengagement(_ context.Context, threshold, limit int) (campaigns.ScheduleReport, error) {
	m.threshold, m.limit = threshold, limit
	return m.report, nil
}

type mockPinger struct{ err error }

func (m mockPinger) Ping(context.Context) error { return m.err }

func newTestRouter(secret string) (http.Handler, *Handler, *mockProcessor, *mockScheduler) {
	p := &mockProcessor{}
	s := &mockScheduler{}
	h := &Handler{
		Processor: p,
		Scheduler: s,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return fixedNow },
	}
	return NewRouter(h, secret), h, p, s
}

func do(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	router, h, _, _ := newTestRouter(testSecret)

	rec := do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	h.Health = mockPinger{err: errors.New("refused")}
	rec = do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCronAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		token  string
		status int
		code   string
	}{
		{"unconfigured", "", "anything", http.StatusServiceUnavailable, ErrCodeUnconfigured},
		{"missing token", testSecret, "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"wrong token", testSecret, "nope", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"prefix of secret", testSecret, "s3cre", http.StatusUnauthorized, ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, p, _ := newTestRouter(tt.secret)

			rec := do(t, router, http.MethodPost, "/api/cron/process-emails", "", tt.token)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["error"].(map[string]any)["code"])
			assert.Zero(t, p.calls)
		})
	}
}

func TestProcessEmails(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		router, _, p, _ := newTestRouter(testSecret)
		p.summary = models.BatchSummary{Processed: 3, Sent: 2, Failed: 1}

		rec := do(t, router, method, "/api/cron/process-emails", "", testSecret)

		require.Equal(t, http.StatusOK, rec.Code, method)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "2026-05-04T09:00:00Z", body["timestamp"])
		assert.Equal(t, float64(3), body["processed"])
		assert.Equal(t, float64(2), body["sent"])
		assert.Equal(t, float64(1), body["failed"])
		assert.Equal(t, float64(0), body["skipped"])
		assert.Equal(t, 1, p.calls)
	}
}

func TestProcessEmailsError(t *testing.T) {
	router, _, p, _ := newTestRouter(testSecret)
	p.err = errors.New("db down")

	rec := do(t, router, http.MethodPost, "/api/cron/process-emails", "", testSecret)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReengagementParams(t *testing.T) {
	router, _, _, s := newTestRouter(testSecret)
	s.report = campaigns.ScheduleReport{Found: 4, Scheduled: 3, Failed: 1}

	rec := do(t, router, http.MethodPost, "/api/cron/re-engagement?threshold=60&limit=10", "", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 60, s.threshold)
	assert.Equal(t, 10, s.limit)
	body := decode(t, rec)
	assert.Equal(t, float64(3), body["scheduled"])

	rec = do(t, router, http.MethodGet, "/api/cron/re-engagement", "", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, campaigns.DefaultInactiveThreshold, s.threshold)
	assert.Equal(t, campaigns.DefaultInactiveLimit, s.limit)

	rec = do(t, router, http.MethodGet, "/api/cron/re-engagement?threshold=abc", "", testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAbandonedResumes(t *testing.T) {
	router, _, _, s := newTestRouter(testSecret)
	s.report = campaigns.ScheduleReport{Found: 2, Scheduled: 2}

	rec := do(t, router, http.MethodGet, "/api/cron/abandoned-resumes", "", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["found"])
	assert.Equal(t, float64(2), body["scheduled"])
}

func TestWelcomeAndOptOut(t *testing.T) {
	router, _, _, s := newTestRouter(testSecret)
	s.job = &models.EmailJob{ID: "job-1", ScheduledAt: fixedNow}

	rec := do(t, router, http.MethodPost, "/api/email/welcome", `{"userId":"u1"}`, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["scheduled"])
	assert.Equal(t, "job-1", body["jobId"])
	assert.Equal(t, []string{"u1"}, s.welcomed)

	s.job = nil
	rec = do(t, router, http.MethodPost, "/api/email/welcome", `{"userId":"u2"}`, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["scheduled"])

	rec = do(t, router, http.MethodPost, "/api/email/opt-out", `{"userId":"u1"}`, testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["cancelled"])
	assert.Equal(t, []string{"u1"}, s.cancelled)
}

func TestWelcomeRejectsBadBody(t *testing.T) {
	router, _, _, s := newTestRouter(testSecret)

	for _, body := range []string{``, `{"userId":"  "}`, `{"user":"u1"}`, `not json`} {
		rec := do(t, router, http.MethodPost, "/api/email/welcome", body, testSecret)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, s.welcomed)

	rec := do(t, router, http.MethodGet, "/api/email/welcome", "", testSecret)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSuppressions(t *testing.T) {
	router, h, _, _ := newTestRouter(testSecret)

	rec := do(t, router, http.MethodPost, "/api/email/suppressions", "Email\na@example.com\n", testSecret)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	guard := email.NewRedisGuard(client)
	h.Suppressions = guard

	rec = do(t, router, http.MethodPost, "/api/email/suppressions", "Name,Email\nA,a@example.com\nB,bad\nC,A@example.com\n", testSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["parsed"])
	assert.Equal(t, float64(1), body["added"])
	assert.Len(t, body["invalid"], 1)

	suppressed, err := guard.Suppressed(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.True(t, suppressed)

	rec = do(t, router, http.MethodPost, "/api/email/suppressions", "Name\nA\n", testSecret)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
