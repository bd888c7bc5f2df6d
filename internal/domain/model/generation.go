package model

import (
	"time"

	"github.com/google/uuid"
)

// GenerationParams is a validated request. Seed -1 means random.
type GenerationParams struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed"`
	NumImages      int     `json:"num_images"`
	LoraName       string  `json:"lora_name,omitempty"`
	LoraURL        string  `json:"lora_url,omitempty"`
	InitImage      string  `json:"-"`
}

type GenerationResult struct {
	AttemptID      uuid.UUID
	Images         [][]byte
	Seed           int64
	ProcessingTime time.Duration
}

// GenerationAttempt is the audit record written once per pipeline run,
// whatever the outcome.
type GenerationAttempt struct {
	ID            uuid.UUID        `json:"id"`
	UserID        string           `json:"user_id"`
	UserEmail     string           `json:"user_email"`
	Params        GenerationParams `json:"params"`
	Success       bool             `json:"success"`
	ErrorCode     string           `json:"error_code,omitempty"`
	Error         string           `json:"error,omitempty"`
	ProcessingMS  int64            `json:"processing_ms"`
	IP            string           `json:"ip"`
	EstimatedCost float64          `json:"estimated_cost"`
	CreatedAt     time.Time        `json:"created_at"`
}
