package ai

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
)

// CompletionsProvider talks to an OpenAI-compatible /chat/completions endpoint.
type CompletionsProvider struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	JSONMode    bool
	Client      *http.Client
}

type completionsMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionsReq struct {
	Model          string           `json:"model"`
	Messages       []completionsMsg `json:"messages"`
	Temperature    *float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type completionsResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewCompletionsProvider(baseURL, apiKey, model string, temperature float64) *CompletionsProvider {
	if baseURL == "" {
		baseURL = "https://ai.gateway.lovable.dev/v1"
	}
	return &CompletionsProvider{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		Temperature: temperature,
		JSONMode:    true,
		Client:      &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *CompletionsProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", errors.New("completions: http client is nil")
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", errors.New("completions: api key is required")
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return "", errors.New("completions: model is required")
	}

	temperature := p.Temperature
	reqBody := completionsReq{
		Model:       model,
		Messages:    toCompletionsMsgs(messages),
		Temperature: &temperature,
	}
	if p.JSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return "", &StatusError{Provider: "completions", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded completionsResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("completions: decode response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("completions: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

func toCompletionsMsgs(messages []Message) []completionsMsg {
	out := make([]completionsMsg, 0, len(messages))
	for _, m := range messages {
		if m.Image == "" {
			out = append(out, completionsMsg{Role: m.Role, Content: m.Content})
			continue
		}
		parts := make([]contentPart, 0, 2)
		if m.Content != "" {
			parts = append(parts, contentPart{Type: "text", Text: m.Content})
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: m.Image}})
		out = append(out, completionsMsg{Role: m.Role, Content: parts})
	}
	return out
}
