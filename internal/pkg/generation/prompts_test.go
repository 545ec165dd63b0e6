package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/careerforge/app/models"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "standard format",
			text:     "Solid project overall.\nScore: 82/100",
			expected: 82,
		},
		{
			name:     "case insensitive",
			text:     "good work\nSCORE: 91",
			expected: 91,
		},
		{
			name:     "score mid-text",
			text:     "The score: 45 reflects missing tests.",
			expected: 45,
		},
		{
			name:     "clamped above hundred",
			text:     "Score: 150/100",
			expected: 100,
		},
		{
			name:     "zero score",
			text:     "Score: 0/100",
			expected: 0,
		},
		{
			name:     "missing score line",
			text:     "Great project, well structured.",
			expected: 0,
		},
		{
			name:     "empty text",
			text:     "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractScore(tt.text))
		})
	}
}

func TestBuildChatRequestFiltersUnsettledTurns(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "How do I prepare for interviews?", Status: models.GenerationStatusCompleted},
		{Role: models.ChatRoleAssistant, Content: "Practice daily.", Status: models.GenerationStatusCompleted},
		{Role: models.ChatRoleAssistant, Content: "", Status: models.GenerationStatusPending},
		{Role: models.ChatRoleAssistant, Content: "stale draft", Status: models.GenerationStatusFailed},
		{Role: models.ChatRoleUser, Content: "   ", Status: models.GenerationStatusCompleted},
		{Role: models.ChatRoleUser, Content: "What about system design?", Status: models.GenerationStatusCompleted},
	}

	req := buildChatRequest(history)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "How do I prepare for interviews?", req.Messages[0].Content)
	assert.Equal(t, "Practice daily.", req.Messages[1].Content)
	assert.Equal(t, "What about system design?", req.Messages[2].Content)
	assert.NotEmpty(t, req.SystemPrompt)
}

func TestBuildCoverLetterRequest(t *testing.T) {
	letter := &models.CoverLetter{
		JobTitle:       "Platform Engineer",
		Company:        "Acme Corp",
		JobDescription: "Build and run Go services.",
	}

	req := buildCoverLetterRequest(letter)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, models.ChatRoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, `"Platform Engineer"`)
	assert.Contains(t, req.Messages[0].Content, "Acme Corp")
	assert.Contains(t, req.Messages[0].Content, "Build and run Go services.")

	// Company is optional.
	letter.Company = ""
	req = buildCoverLetterRequest(letter)
	assert.NotContains(t, req.Messages[0].Content, " at ")
}

func TestBuildRoadmapRequest(t *testing.T) {
	roadmap := &models.Roadmap{
		Goal:            "become a backend developer",
		ExperienceLevel: "beginner",
		DurationWeeks:   12,
	}

	req := buildRoadmapRequest(roadmap)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "12-week")
	assert.Contains(t, req.Messages[0].Content, "become a backend developer")
	assert.Contains(t, req.Messages[0].Content, "beginner")
}

func TestBuildCapstoneRequest(t *testing.T) {
	review := &models.CapstoneReview{
		ProjectTitle:    "URL Shortener",
		RepoURL:         "https://example.com/repo",
		SubmissionNotes: "Implements redirects and stats.",
	}

	req := buildCapstoneRequest(review)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "URL Shortener")
	assert.Contains(t, req.Messages[0].Content, "https://example.com/repo")
	assert.Contains(t, req.Messages[0].Content, "Implements redirects and stats.")
}
