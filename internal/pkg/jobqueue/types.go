package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/careerforge/careerforge/internal/pkg/generation"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeGeneration JobType = "generation"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// GenerationJobPayload contains the payload for generation jobs
type GenerationJobPayload struct {
	Kind       generation.Kind `json:"kind"`
	ResourceID uint            `json:"resource_id"`
	UserID     uint            `json:"user_id"`
}

// ToMap converts the payload to a map for storage
func (p GenerationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"kind":        string(p.Kind),
		"resource_id": p.ResourceID,
		"user_id":     p.UserID,
	}
}

// FromMap creates a payload from a map
func GenerationJobPayloadFromMap(data map[string]interface{}) (*GenerationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload GenerationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// Trigger converts the payload into a generation trigger
func (p GenerationJobPayload) Trigger() generation.Trigger {
	return generation.Trigger{
		Kind:       p.Kind,
		ResourceID: p.ResourceID,
		UserID:     p.UserID,
	}
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
