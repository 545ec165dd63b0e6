package generation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/careerforge/careerforge/app/models"
	"github.com/careerforge/careerforge/internal/pkg/provider"
)

const chatSystemPrompt = "You are a pragmatic career mentor. Answer the " +
	"user's questions about careers, job searching and skill development. " +
	"Be specific and concise."

const coverLetterSystemPrompt = "You write tailored, professional cover " +
	"letters. Use the job description to highlight relevant strengths. " +
	"Return only the letter text."

const roadmapSystemPrompt = "You design practical, week-by-week learning " +
	"roadmaps. Structure the plan into numbered weeks with concrete " +
	"resources and a milestone per phase."

const capstoneSystemPrompt = "You review capstone projects like a senior " +
	"engineer. Assess scope, code organization and presentation based on " +
	"the submission. End with a line 'Score: N/100'."

func buildChatRequest(history []models.ChatMessage) *provider.Request {
	messages := make([]provider.Message, 0, len(history))
	for _, m := range history {
		// Only settled turns and the triggering user turn go into context.
		if m.Role == models.ChatRoleAssistant && m.Status != models.GenerationStatusCompleted {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}
	return &provider.Request{
		SystemPrompt: chatSystemPrompt,
		Messages:     messages,
	}
}

func buildCoverLetterRequest(letter *models.CoverLetter) *provider.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a cover letter for the position %q", letter.JobTitle)
	if strings.TrimSpace(letter.Company) != "" {
		fmt.Fprintf(&sb, " at %s", letter.Company)
	}
	sb.WriteString(".\n\nJob description:\n")
	sb.WriteString(letter.JobDescription)

	return &provider.Request{
		SystemPrompt: coverLetterSystemPrompt,
		Messages:     []provider.Message{{Role: models.ChatRoleUser, Content: sb.String()}},
	}
}

func buildRoadmapRequest(roadmap *models.Roadmap) *provider.Request {
	content := fmt.Sprintf(
		"Create a %d-week learning roadmap for the goal %q. Experience level: %s.",
		roadmap.DurationWeeks, roadmap.Goal, roadmap.ExperienceLevel,
	)
	return &provider.Request{
		SystemPrompt: roadmapSystemPrompt,
		Messages:     []provider.Message{{Role: models.ChatRoleUser, Content: content}},
	}
}

func buildCapstoneRequest(review *models.CapstoneReview) *provider.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Review the capstone project %q.\n", review.ProjectTitle)
	if strings.TrimSpace(review.RepoURL) != "" {
		fmt.Fprintf(&sb, "Repository: %s\n", review.RepoURL)
	}
	sb.WriteString("\nSubmission notes:\n")
	sb.WriteString(review.SubmissionNotes)

	return &provider.Request{
		SystemPrompt: capstoneSystemPrompt,
		Messages:     []provider.Message{{Role: models.ChatRoleUser, Content: sb.String()}},
	}
}

var scorePattern = regexp.MustCompile(`(?i)score:\s*(\d{1,3})`)

// extractScore pulls the "Score: N/100" line out of a review text. Returns 0
// when the provider did not follow the format.
func extractScore(text string) int {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	score, err := strconv.Atoi(m[1])
	if err != nil || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
