package model

import "time"

type BlockRecord struct {
	UserID         string     `json:"user_id"`
	PermanentBan   bool       `json:"permanent_ban"`
	Reason         string     `json:"reason"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
	BlockedBy      string     `json:"blocked_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ActiveAt reports whether the record still denies access at now.
func (b BlockRecord) ActiveAt(now time.Time) bool {
	if b.PermanentBan {
		return true
	}
	return b.SuspendedUntil != nil && b.SuspendedUntil.After(now)
}
