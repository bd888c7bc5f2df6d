package model

import (
	"time"

	"github.com/google/uuid"
)

type StoredImage struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	UserEmail string         `json:"user_email"`
	Prompt    string         `json:"prompt"`
	ImageURL  string         `json:"image_url"`
	FileName  string         `json:"file_name"`
	SizeBytes int64          `json:"size_bytes"`
	Metadata  map[string]any `json:"metadata"`
	AttemptID *uuid.UUID     `json:"attempt_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ImagePage struct {
	Images  []StoredImage
	HasMore bool
}
