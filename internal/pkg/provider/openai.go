package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/careerforge/careerforge/internal/pkg/env"
)

const defaultOpenAIAPIBaseURL = "https://api.openai.com"

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	APIKey     string
	Model      string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewOpenAIClientFromEnv() *OpenAIClient {
	return &OpenAIClient{
		APIKey:     strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		Model:      strings.TrimSpace(env.GetEnv("OPENAI_MODEL", "gpt-4o-mini")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("OPENAI_API_BASE_URL", defaultOpenAIAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *OpenAIClient) ID() string {
	return "openai"
}

func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}

	messages := make([]map[string]string, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":    c.Model,
		"messages": messages,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.APIBaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, errors.New("openai response contained no completion")
	}

	return &Result{
		Text:       out.Choices[0].Message.Content,
		TokensUsed: out.Usage.TotalTokens,
		ProviderID: c.ID(),
	}, nil
}
