package rules

import (
	"errors"
	"time"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
)

var (
	ErrDailyLimitReached = errors.New("daily generation limit reached")
	ErrIPLimitReached    = errors.New("ip hourly limit reached")
)

func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.UTC()
}

func DailyLimit(isPremium bool, standard, premium int) int {
	if isPremium && premium > 0 {
		return premium
	}
	return standard
}

// ConsumeDaily applies one generation to q. A missing record or a record
// from an earlier day starts over at 1. At the limit q is left untouched.
func ConsumeDaily(q *model.UserQuota, exists bool, today string, limit int) error {
	if !exists || q.LastRequestDate != today {
		q.LastRequestDate = today
		q.RequestCount = 1
		return nil
	}
	if q.RequestCount >= limit {
		return ErrDailyLimitReached
	}
	q.RequestCount++
	return nil
}

func SnapshotDaily(q model.UserQuota, exists bool, today string, limit int, resetAt time.Time) model.QuotaSnapshot {
	used := 0
	if exists && q.LastRequestDate == today {
		used = q.RequestCount
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return model.QuotaSnapshot{
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// SlideWindow drops requests older than window and records now when the
// remaining count is below limit.
func SlideWindow(w *model.IPWindow, now time.Time, window time.Duration, limit int) error {
	cutoff := now.Add(-window)
	kept := w.Requests[:0]
	for _, ts := range w.Requests {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.Requests = kept

	if len(w.Requests) >= limit {
		return ErrIPLimitReached
	}
	if w.FirstSeen.IsZero() {
		w.FirstSeen = now
	}
	w.Requests = append(w.Requests, now)
	return nil
}
