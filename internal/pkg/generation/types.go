package generation

import (
	"strconv"

	"github.com/careerforge/careerforge/internal/pkg/env"
)

// Kind identifies which generation-bearing entity a job trigger refers to.
type Kind string

const (
	KindChatMessage    Kind = "chat_message"
	KindCoverLetter    Kind = "cover_letter"
	KindRoadmap        Kind = "roadmap"
	KindCapstoneReview Kind = "capstone_review"
)

// Trigger is the unit of work handed to the orchestrator. It travels through
// the job queue and may be delivered more than once; the entity's pending
// status is the redelivery guard.
type Trigger struct {
	Kind       Kind `json:"kind"`
	ResourceID uint `json:"resource_id"`
	UserID     uint `json:"user_id"`
}

// Costs holds the credit price of each generation kind.
type Costs struct {
	ChatMessage    int64
	CoverLetter    int64
	Roadmap        int64
	CapstoneReview int64
}

// CostsFromEnv reads per-kind credit costs with sensible defaults.
func CostsFromEnv() Costs {
	return Costs{
		ChatMessage:    costEnv("CREDIT_COST_CHAT_MESSAGE", 1),
		CoverLetter:    costEnv("CREDIT_COST_COVER_LETTER", 3),
		Roadmap:        costEnv("CREDIT_COST_ROADMAP", 5),
		CapstoneReview: costEnv("CREDIT_COST_CAPSTONE_REVIEW", 8),
	}
}

func costEnv(key string, def int64) int64 {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// For returns the configured cost for a kind.
func (c Costs) For(kind Kind) int64 {
	switch kind {
	case KindChatMessage:
		return c.ChatMessage
	case KindCoverLetter:
		return c.CoverLetter
	case KindRoadmap:
		return c.Roadmap
	case KindCapstoneReview:
		return c.CapstoneReview
	default:
		return 0
	}
}
