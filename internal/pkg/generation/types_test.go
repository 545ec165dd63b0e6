package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostsFor(t *testing.T) {
	costs := Costs{ChatMessage: 1, CoverLetter: 3, Roadmap: 5, CapstoneReview: 8}

	tests := []struct {
		name     string
		kind     Kind
		expected int64
	}{
		{name: "chat message", kind: KindChatMessage, expected: 1},
		{name: "cover letter", kind: KindCoverLetter, expected: 3},
		{name: "roadmap", kind: KindRoadmap, expected: 5},
		{name: "capstone review", kind: KindCapstoneReview, expected: 8},
		{name: "unknown kind", kind: Kind("resume"), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, costs.For(tt.kind))
		})
	}
}
