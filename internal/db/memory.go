package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"ResumeMailer/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of the Store query surface.
// It enforces the same single-PENDING-job constraint and state guards as
// the Postgres schema and is used when no DATABASE_URL is configured.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	jobs    map[string]*models.EmailJob
	order   []string
	users   map[string]models.User
	resumes map[string]models.Resume
	runs    []BatchRun
	logs    []DeliveryLog
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:     now,
		jobs:    make(map[string]*models.EmailJob),
		users:   make(map[string]models.User),
		resumes: make(map[string]models.Resume),
	}
}

func (m *MemoryStore) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) PutResume(r models.Resume) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes[r.ID] = r
}

// PutJob stores a job as-is, bypassing the pending constraint. Seeding only.
func (m *MemoryStore) PutJob(job models.EmailJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, ok := m.jobs[job.ID]; !ok {
		m.order = append(m.order, job.ID)
	}
	m.jobs[job.ID] = &job
}

// Jobs returns a snapshot of every job in insertion order.
func (m *MemoryStore) Jobs() []models.EmailJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EmailJob, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.jobs[id])
	}
	return out
}

func (m *MemoryStore) BatchRuns() []BatchRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BatchRun(nil), m.runs...)
}

func (m *MemoryStore) DeliveryLogs() []DeliveryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeliveryLog(nil), m.logs...)
}

func (m *MemoryStore) UpsertPendingJob(_ context.Context, job models.EmailJob) (*models.EmailJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.pendingLocked(job.UserID, job.Campaign); existing != nil {
		cp := *existing
		return &cp, false, nil
	}

	now := m.now()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.StatusPending
	job.SentAt = nil
	job.Error = nil
	job.CreatedAt = now
	job.UpdatedAt = now

	stored := job
	m.jobs[job.ID] = &stored
	m.order = append(m.order, job.ID)

	return &job, true, nil
}

func (m *MemoryStore) pendingLocked(userID string, campaign models.Campaign) *models.EmailJob {
	for _, id := range m.order {
		j := m.jobs[id]
		if j.UserID == userID && j.Campaign == campaign && j.Status == models.StatusPending {
			return j
		}
	}
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (*models.EmailJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) ListDueJobs(_ context.Context, now time.Time, limit int) ([]models.DueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []models.DueJob
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status != models.StatusPending || j.ScheduledAt.After(now) {
			continue
		}
		u, ok := m.users[j.UserID]
		if !ok {
			continue
		}
		due = append(due, models.DueJob{EmailJob: *j, User: u})
	}

	sort.SliceStable(due, func(a, b int) bool {
		return due[a].ScheduledAt.Before(due[b].ScheduledAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryStore) ClaimJob(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != models.StatusPending {
		return false, nil
	}
	j.Status = models.StatusProcessing
	j.UpdatedAt = m.now()
	return true, nil
}

func (m *MemoryStore) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	return m.transition(id, models.StatusSent, func(j *models.EmailJob) {
		t := sentAt
		j.SentAt = &t
		j.Error = nil
	}, models.StatusProcessing)
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string, errorMsg string) error {
	return m.transition(id, models.StatusFailed, func(j *models.EmailJob) {
		msg := errorMsg
		j.Error = &msg
	}, models.StatusProcessing)
}

func (m *MemoryStore) MarkCancelled(_ context.Context, id string, reason string) error {
	return m.transition(id, models.StatusCancelled, func(j *models.EmailJob) {
		if reason != "" {
			r := reason
			j.Error = &r
		}
	}, models.StatusPending, models.StatusProcessing)
}

func (m *MemoryStore) transition(id string, to models.EmailStatus, apply func(*models.EmailJob), from ...models.EmailStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrNoTransition
	}

	allowed := false
	for _, s := range from {
		if j.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrNoTransition
	}

	j.Status = to
	apply(j)
	j.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) CancelPendingJobs(_ context.Context, userID string, campaign models.Campaign) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, id := range m.order {
		j := m.jobs[id]
		if j.UserID == userID && j.Campaign == campaign && j.Status == models.StatusPending {
			j.Status = models.StatusCancelled
			j.UpdatedAt = m.now()
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RecycleStaleJobs(_ context.Context, before time.Time) (recycled, superseded int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type pair struct {
		user     string
		campaign models.Campaign
	}

	groups := make(map[pair][]*models.EmailJob)
	var keys []pair
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status != models.StatusProcessing || !j.UpdatedAt.Before(before) {
			continue
		}
		k := pair{j.UserID, j.Campaign}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], j)
	}

	now := m.now()
	for _, k := range keys {
		stale := groups[k]
		sort.SliceStable(stale, func(a, b int) bool {
			if stale[a].ScheduledAt.Equal(stale[b].ScheduledAt) {
				return stale[a].ID < stale[b].ID
			}
			return stale[a].ScheduledAt.After(stale[b].ScheduledAt)
		})

		hasPending := m.pendingLocked(k.user, k.campaign) != nil
		for i, j := range stale {
			j.UpdatedAt = now
			if i == 0 && !hasPending {
				j.Status = models.StatusPending
				recycled++
				continue
			}
			reason := SupersededReason
			j.Status = models.StatusCancelled
			j.Error = &reason
			superseded++
		}
	}

	return recycled, superseded, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// blockedLocked reports whether the user has an active job for the
// campaign or one sent at or after since.
func (m *MemoryStore) blockedLocked(userID string, campaign models.Campaign, since time.Time) bool {
	for _, id := range m.order {
		j := m.jobs[id]
		if j.UserID != userID || j.Campaign != campaign {
			continue
		}
		switch j.Status {
		case models.StatusPending, models.StatusProcessing:
			return true
		case models.StatusSent:
			if j.SentAt != nil && !j.SentAt.Before(since) {
				return true
			}
		}
	}
	return false
}

func (m *MemoryStore) FindInactiveUsers(_ context.Context, q InactiveUserQuery) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.User
	for _, u := range m.users {
		if u.EmailOptOut || u.LastLoginAt == nil || u.LastLoginAt.After(q.LastLoginBefore) {
			continue
		}
		if m.blockedLocked(u.ID, models.CampaignReengagement, q.SentSince) {
			continue
		}
		out = append(out, u)
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].LastLoginAt.Equal(*out[b].LastLoginAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].LastLoginAt.Before(*out[b].LastLoginAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) FindDraftResumes(_ context.Context, q AbandonedResumeQuery) ([]models.AbandonedResume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.AbandonedResume
	for _, r := range m.resumes {
		if r.Status != models.ResumeDraft {
			continue
		}
		if r.UpdatedAt.Before(q.UpdatedFrom) || r.UpdatedAt.After(q.UpdatedTo) {
			continue
		}
		u, ok := m.users[r.UserID]
		if !ok || u.EmailOptOut {
			continue
		}
		if m.blockedLocked(u.ID, models.CampaignAbandonedResume, q.SentSince) {
			continue
		}
		out = append(out, models.AbandonedResume{Resume: r, User: u})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Resume.UpdatedAt.Equal(out[b].Resume.UpdatedAt) {
			return out[a].Resume.ID < out[b].Resume.ID
		}
		return out[a].Resume.UpdatedAt.After(out[b].Resume.UpdatedAt)
	})
	return out, nil
}

func (m *MemoryStore) RecordBatchRun(_ context.Context, run BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryStore) InsertDeliveryLog(_ context.Context, entry DeliveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = m.now()
	m.logs = append(m.logs, entry)
	return nil
}
