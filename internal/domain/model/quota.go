package model

import "time"

// UserQuota is the per-user daily counter. RequestCount is meaningful only
// for LastRequestDate.
type UserQuota struct {
	UserID          string    `json:"user_id"`
	Email           string    `json:"email"`
	LastRequestDate string    `json:"last_request_date"`
	RequestCount    int       `json:"request_count"`
	IsPremium       bool      `json:"is_premium"`
	LastIP          string    `json:"last_ip"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type IPWindow struct {
	IP        string      `json:"ip"`
	Requests  []time.Time `json:"requests"`
	FirstSeen time.Time   `json:"first_seen"`
}

type QuotaSnapshot struct {
	Limit             int       `json:"limit"`
	Used              int       `json:"used"`
	Remaining         int       `json:"remaining"`
	Unlimited         bool      `json:"unlimited"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int64     `json:"retry_after_seconds"`
}
