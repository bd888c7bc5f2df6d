package dto

type GenerateResponse struct {
	Success          bool     `json:"success"`
	AttemptID        string   `json:"attempt_id"`
	Image            string   `json:"image,omitempty"`
	Images           []string `json:"images,omitempty"`
	Seed             int64    `json:"seed"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
}
