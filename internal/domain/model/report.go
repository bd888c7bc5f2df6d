package model

import "time"

type CostSnapshot struct {
	DailyImages   int64     `json:"daily_images"`
	MonthlyImages int64     `json:"monthly_images"`
	DailyCost     float64   `json:"daily_cost"`
	MonthlyCost   float64   `json:"monthly_cost"`
	ComputedAt    time.Time `json:"computed_at"`
}

type DailyReport struct {
	ReportDate       string       `json:"report_date"`
	Costs            CostSnapshot `json:"costs"`
	IPRecordsRemoved int64        `json:"ip_records_removed"`
	OrphanAttempts   int64        `json:"orphan_attempts"`
	UnlinkedImages   int64        `json:"unlinked_images"`
	CreatedAt        time.Time    `json:"created_at"`
}
