package models

import "time"

type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleArabic  Locale = "ar"
	LocaleKurdish Locale = "ckb"
)

// ParseLocale maps a stored preference to a supported locale, falling back
// to English for anything unrecognised.
func ParseLocale(s string) Locale {
	switch Locale(s) {
	case LocaleArabic, LocaleKurdish:
		return Locale(s)
	}
	return LocaleEnglish
}

// RTL reports whether the locale is written right to left.
func (l Locale) RTL() bool {
	return l == LocaleArabic || l == LocaleKurdish
}

type EmailPreferences struct {
	Locale string `json:"locale,omitempty"`
}

type User struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	EmailOptOut      bool             `json:"emailOptOut"`
	EmailPreferences EmailPreferences `json:"emailPreferences"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastLoginAt      *time.Time       `json:"lastLoginAt,omitempty"`
}

func (u User) Locale() Locale {
	return ParseLocale(u.EmailPreferences.Locale)
}

type ResumeStatus string

const (
	ResumeDraft     ResumeStatus = "DRAFT"
	ResumePublished ResumeStatus = "PUBLISHED"
	ResumeArchived  ResumeStatus = "ARCHIVED"
)

type Resume struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Status    ResumeStatus `json:"status"`
	Title     string       `json:"title"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// AbandonedResume is a detector result: a stale draft and its owner.
type AbandonedResume struct {
	Resume Resume `json:"resume"`
	User   User   `json:"user"`
}

// InactiveUser is a re-engagement detector result.
type InactiveUser struct {
	User         User `json:"user"`
	InactiveDays int  `json:"inactiveDays"`
	Threshold    int  `json:"threshold"`
}
