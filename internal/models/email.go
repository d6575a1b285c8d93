package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Campaign string

const (
	CampaignWelcome         Campaign = "WELCOME"
	CampaignAbandonedResume Campaign = "ABANDONED_RESUME"
	CampaignReengagement    Campaign = "RE_ENGAGEMENT"
)

func (c Campaign) Known() bool {
	switch c {
	case CampaignWelcome, CampaignAbandonedResume, CampaignReengagement:
		return true
	}
	return false
}

type EmailStatus string

const (
	StatusPending    EmailStatus = "PENDING"
	StatusProcessing EmailStatus = "PROCESSING"
	StatusSent       EmailStatus = "SENT"
	StatusFailed     EmailStatus = "FAILED"
	StatusCancelled  EmailStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the status.
func (s EmailStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

type EmailJob struct {
	ID       string      `json:"id"`
	UserID   string      `json:"userId"`
	Campaign Campaign    `json:"campaign"`
	Status   EmailStatus `json:"status"`
	Metadata JobMetadata `json:"metadata,omitempty"`

	ScheduledAt time.Time  `json:"scheduledAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	Error       *string    `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DueJob is a job joined with the recipient fields the processor needs.
type DueJob struct {
	EmailJob
	User User `json:"user"`
}

// JobMetadata is the campaign specific payload of a job. The concrete type
// is selected by the job's campaign.
type JobMetadata interface {
	Campaign() Campaign
}

type WelcomeMetadata struct {
	Step       int    `json:"step"`
	Key        string `json:"key"`
	DayOffset  int    `json:"dayOffset"`
	TotalSteps int    `json:"totalSteps"`
}

func (WelcomeMetadata) Campaign() Campaign { return CampaignWelcome }

type AbandonedMetadata struct {
	ResumeID     string     `json:"resumeId"`
	ResumeTitle  string     `json:"resumeTitle"`
	Completion   int        `json:"completion,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
}

func (AbandonedMetadata) Campaign() Campaign { return CampaignAbandonedResume }

type ReengagementMetadata struct {
	Threshold    int `json:"threshold"`
	InactiveDays int `json:"inactiveDays"`
}

func (ReengagementMetadata) Campaign() Campaign { return CampaignReengagement }

// RawMetadata holds the payload of a job whose campaign is not recognised.
type RawMetadata struct {
	For  Campaign        `json:"-"`
	Data json.RawMessage `json:"-"`
}

func (m RawMetadata) Campaign() Campaign { return m.For }

func (m RawMetadata) MarshalJSON() ([]byte, error) {
	if len(m.Data) == 0 {
		return []byte("null"), nil
	}
	return m.Data, nil
}

// InvalidMetadata stands in for a stored payload that could not be decoded
// into its campaign's type. The job is still delivered to the processor so
// it can be failed on its own.
type InvalidMetadata struct {
	For  Campaign        `json:"-"`
	Data json.RawMessage `json:"-"`
	Err  error           `json:"-"`
}

func (m InvalidMetadata) Campaign() Campaign { return m.For }

func (m InvalidMetadata) MarshalJSON() ([]byte, error) {
	if len(m.Data) == 0 {
		return []byte("null"), nil
	}
	return m.Data, nil
}

// DecodeMetadataLenient is DecodeMetadata for rows read back from storage:
// a payload that does not fit its campaign becomes InvalidMetadata.
func DecodeMetadataLenient(c Campaign, data []byte) JobMetadata {
	m, err := DecodeMetadata(c, data)
	if err != nil {
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return InvalidMetadata{For: c, Data: raw, Err: err}
	}
	return m
}

// EncodeMetadata serialises metadata for storage. Nil encodes as "{}".
func EncodeMetadata(m JobMetadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// DecodeMetadata picks the concrete metadata type from the campaign. Unknown
// campaigns decode into RawMetadata rather than failing.
func DecodeMetadata(c Campaign, data []byte) (JobMetadata, error) {
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch c {
	case CampaignWelcome:
		var m WelcomeMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode welcome metadata: %w", err)
		}
		return m, nil
	case CampaignAbandonedResume:
		var m AbandonedMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode abandoned metadata: %w", err)
		}
		return m, nil
	case CampaignReengagement:
		var m ReengagementMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode re-engagement metadata: %w", err)
		}
		return m, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return RawMetadata{For: c, Data: raw}, nil
	}
}

// BatchSummary is the outcome of one processor invocation.
type BatchSummary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
