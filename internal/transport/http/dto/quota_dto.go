package dto

import "time"

type QuotaResponse struct {
	Limit             int       `json:"limit"`
	Used              int       `json:"used"`
	Remaining         int       `json:"remaining"`
	Unlimited         bool      `json:"unlimited"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int64     `json:"retry_after_seconds"`
}
