package dto

import "time"

type ManageUserRequest struct {
	UserID   string `json:"user_id"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
	Duration *int   `json:"duration,omitempty"`
}

type ManageUserResponse struct {
	Success        bool       `json:"success"`
	Action         string     `json:"action"`
	UserID         string     `json:"user_id"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
}

type SetPremiumRequest struct {
	UserID  string `json:"user_id"`
	Premium bool   `json:"premium"`
}

type CostsResponse struct {
	DailyImages     int64     `json:"daily_images"`
	MonthlyImages   int64     `json:"monthly_images"`
	DailyCost       float64   `json:"daily_cost"`
	MonthlyCost     float64   `json:"monthly_cost"`
	CostPerImage    float64   `json:"cost_per_image"`
	DailyAlertUSD   float64   `json:"daily_alert_usd"`
	MonthlyAlertUSD float64   `json:"monthly_alert_usd"`
	ComputedAt      time.Time `json:"computed_at"`
}
