package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/careerforge/careerforge/internal/pkg/env"
)

// Router calls the primary backend and falls back to the secondary on
// failure. It is a pure function of configuration and request; it holds no
// state and is safe for concurrent use.
type Router struct {
	primary  Provider
	fallback Provider
}

func NewRouter(primary, fallback Provider) *Router {
	return &Router{primary: primary, fallback: fallback}
}

// NewRouterFromEnv selects primary and fallback backends by name from
// AI_PRIMARY_PROVIDER / AI_FALLBACK_PROVIDER. Both may name the same
// backend; there is no real fallback then.
func NewRouterFromEnv() *Router {
	return NewRouter(
		providerByName(env.GetEnv("AI_PRIMARY_PROVIDER", "openai")),
		providerByName(env.GetEnv("AI_FALLBACK_PROVIDER", "gemini")),
	)
}

func providerByName(name string) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return NewGeminiClientFromEnv()
	default:
		return NewOpenAIClientFromEnv()
	}
}

// Generate tries the primary backend; on failure it attempts the fallback
// exactly once, and only if the fallback is a distinct backend. When both
// fail the error aggregates both underlying failures.
func (r *Router) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("generation request requires at least one message")
	}

	result, primaryErr := r.primary.Generate(ctx, req)
	if primaryErr == nil {
		return result, nil
	}
	log.Warnf("[Provider] Primary %s failed: %v", r.primary.ID(), primaryErr)

	if r.fallback == nil || r.fallback.ID() == r.primary.ID() {
		return nil, &ExhaustedError{PrimaryID: r.primary.ID(), PrimaryErr: primaryErr}
	}

	result, fallbackErr := r.fallback.Generate(ctx, req)
	if fallbackErr == nil {
		log.Infof("[Provider] Fallback %s served request after primary failure", r.fallback.ID())
		return result, nil
	}
	log.Errorf("[Provider] Fallback %s failed too: %v", r.fallback.ID(), fallbackErr)

	return nil, &ExhaustedError{
		PrimaryID:   r.primary.ID(),
		PrimaryErr:  primaryErr,
		FallbackID:  r.fallback.ID(),
		FallbackErr: fallbackErr,
	}
}
