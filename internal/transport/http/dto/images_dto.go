package dto

import "time"

type SaveImageRequest struct {
	ImageBase64 string         `json:"image_base64"`
	Prompt      string         `json:"prompt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	AttemptID   string         `json:"attempt_id,omitempty"`
}

type SaveImageResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	FileName string `json:"file_name"`
}

type ImageItem struct {
	ID        string         `json:"id"`
	Prompt    string         `json:"prompt"`
	ImageURL  string         `json:"image_url"`
	FileName  string         `json:"file_name"`
	SizeBytes int64          `json:"size_bytes"`
	Metadata  map[string]any `json:"metadata"`
	AttemptID *string        `json:"attempt_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type ListImagesResponse struct {
	Success bool        `json:"success"`
	Images  []ImageItem `json:"images"`
	HasMore bool        `json:"has_more"`
}
