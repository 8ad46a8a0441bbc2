package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
)

type Job struct {
	ID             string     `json:"id"`
	Status         JobStatus  `json:"status"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Task is one URL of a batch job as it travels through the Redis queue.
type Task struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

type AnalysisRecord struct {
	JobID  string          `json:"job_id"`
	URL    string          `json:"url"`
	Score  int             `json:"score"`
	Status Classification  `json:"status"`
	Data   json.RawMessage `json:"data"` // RawMessage keeps the JSONB summary unescaped
}
