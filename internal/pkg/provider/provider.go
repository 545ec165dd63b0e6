package provider

import (
	"context"
	"fmt"
)

// Message is one turn of the conversation sent to a generation backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-neutral generation input.
type Request struct {
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`
}

// Result is what a backend produced for one request.
type Result struct {
	Text       string `json:"text"`
	TokensUsed int    `json:"tokens_used"`
	ProviderID string `json:"provider_id"`
}

// Provider is a single external generation backend. Implementations must
// fail fast with a bounded timeout rather than hang.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
	ID() string
}

// ExhaustedError is returned when every configured backend failed. It
// carries both underlying failures.
type ExhaustedError struct {
	PrimaryID   string
	PrimaryErr  error
	FallbackID  string
	FallbackErr error
}

func (e *ExhaustedError) Error() string {
	if e.FallbackID == "" {
		return fmt.Sprintf("provider %s failed: %v", e.PrimaryID, e.PrimaryErr)
	}
	return fmt.Sprintf("all providers failed: %s: %v; %s: %v",
		e.PrimaryID, e.PrimaryErr, e.FallbackID, e.FallbackErr)
}

func (e *ExhaustedError) Unwrap() error {
	if e.FallbackErr != nil {
		return e.FallbackErr
	}
	return e.PrimaryErr
}
