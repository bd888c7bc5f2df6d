package model

import "time"

type ContentViolation struct {
	UserID         string    `json:"user_id"`
	UserEmail      string    `json:"user_email"`
	Prompt         string    `json:"prompt"`
	Reason         string    `json:"reason"`
	FlaggedKeyword string    `json:"flagged_keyword,omitempty"`
	IP             string    `json:"ip"`
	CreatedAt      time.Time `json:"created_at"`
}
