package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/careerforge/internal/pkg/generation"
)

func TestGenerationJobPayloadRoundTrip(t *testing.T) {
	original := GenerationJobPayload{
		Kind:       generation.KindCoverLetter,
		ResourceID: 1234,
		UserID:     56,
	}

	restored, err := GenerationJobPayloadFromMap(original.ToMap())
	require.NoError(t, err)
	assert.Equal(t, original, *restored)
}

func TestGenerationJobPayloadTrigger(t *testing.T) {
	payload := GenerationJobPayload{
		Kind:       generation.KindChatMessage,
		ResourceID: 99,
		UserID:     7,
	}

	trigger := payload.Trigger()
	assert.Equal(t, generation.KindChatMessage, trigger.Kind)
	assert.Equal(t, uint(99), trigger.ResourceID)
	assert.Equal(t, uint(7), trigger.UserID)
}

func TestJobIsRetryable(t *testing.T) {
	tests := []struct {
		name       string
		status     JobStatus
		retryCount int
		maxRetries int
		expected   bool
	}{
		{
			name:       "failed job with retries left",
			status:     JobStatusFailed,
			retryCount: 1,
			maxRetries: 3,
			expected:   true,
		},
		{
			name:       "failed job with retries exhausted",
			status:     JobStatusFailed,
			retryCount: 3,
			maxRetries: 3,
			expected:   false,
		},
		{
			name:       "pending job is not retryable",
			status:     JobStatusPending,
			retryCount: 0,
			maxRetries: 3,
			expected:   false,
		},
		{
			name:       "completed job is not retryable",
			status:     JobStatusCompleted,
			retryCount: 0,
			maxRetries: 3,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				Status:     tt.status,
				RetryCount: tt.retryCount,
				MaxRetries: tt.maxRetries,
			}
			assert.Equal(t, tt.expected, job.IsRetryable())
		})
	}
}

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeGeneration,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now().Add(-time.Minute),
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("provider timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "provider timeout", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}
