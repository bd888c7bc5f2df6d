package dto

import "time"

type HealthFeatures struct {
	Authentication    bool `json:"authentication"`
	RateLimiting      bool `json:"rate_limiting"`
	ContentModeration bool `json:"content_moderation"`
	IPTracking        bool `json:"ip_tracking"`
	CostMonitoring    bool `json:"cost_monitoring"`
	UserBlocking      bool `json:"user_blocking"`
	WebhookAlerts     bool `json:"webhook_alerts"`
	AIModeration      bool `json:"ai_moderation"`
}

type HealthInference struct {
	Configured bool `json:"configured"`
}

type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Version   string          `json:"version"`
	Features  HealthFeatures  `json:"features"`
	Inference HealthInference `json:"inference"`
}
