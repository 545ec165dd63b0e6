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

const defaultGeminiAPIBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient talks to the Google Gemini generateContent endpoint.
type GeminiClient struct {
	APIKey     string
	Model      string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewGeminiClientFromEnv() *GeminiClient {
	return &GeminiClient{
		APIKey:     strings.TrimSpace(env.GetEnv("GEMINI_API_KEY", "")),
		Model:      strings.TrimSpace(env.GetEnv("GEMINI_MODEL", "gemini-2.0-flash")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("GEMINI_API_BASE_URL", defaultGeminiAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *GeminiClient) ID() string {
	return "gemini"
}

func (c *GeminiClient) Generate(ctx context.Context, req *Request) (*Result, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}

	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	contents := make([]content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	payload := map[string]interface{}{"contents": contents}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload["systemInstruction"] = content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.APIBaseURL, "/"), c.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			TotalTokenCount int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini response contained no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, errors.New("gemini response contained no text")
	}

	return &Result{
		Text:       text,
		TokensUsed: out.UsageMetadata.TotalTokenCount,
		ProviderID: c.ID(),
	}, nil
}
