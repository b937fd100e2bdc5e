// Package gateway obtains assistant replies, either from the backend
// function over HTTP or from an in-process assistant.Service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suPer8Hu/health-assistant/internal/assistant"
	"github.com/suPer8Hu/health-assistant/internal/chat"
)

const (
	defaultTimeout = 90 * time.Second
	maxBodyBytes   = 4 << 20
)

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client posts conversations to the backend function. One attempt per turn.
type Client struct {
	url    string
	apiKey string
	client httpDoer
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    strings.TrimSpace(url),
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(d httpDoer) *Client {
	c.client = d
	return c
}

func (c *Client) Send(ctx context.Context, conversation []chat.Message, hints chat.Hints) (string, error) {
	if err := checkConversation(conversation); err != nil {
		return "", err
	}

	body, err := json.Marshal(BuildRequest(conversation, hints))
	if err != nil {
		return "", &chat.GatewayError{Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &chat.GatewayError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &chat.GatewayError{Message: "call backend function", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &chat.GatewayError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	var envelope assistant.Response
	decodeErr := json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(envelope.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &chat.GatewayError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &chat.GatewayError{Status: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if envelope.Error != "" {
		return "", &chat.GatewayError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if envelope.Response == nil {
		return "", &chat.GatewayError{Status: resp.StatusCode, Message: "response field missing"}
	}
	return *envelope.Response, nil
}

// BuildRequest maps a conversation and its hints to the function payload.
func BuildRequest(conversation []chat.Message, hints chat.Hints) assistant.Request {
	msgs := make([]assistant.WireMessage, 0, len(conversation))
	for _, m := range conversation {
		msgs = append(msgs, assistant.WireMessage{Role: string(m.Role), Content: m.Content})
	}
	req := assistant.Request{
		Messages: msgs,
		Language: hints.Language,
		Image:    hints.Image,
	}
	if focus := strings.TrimSpace(hints.Focus); focus != "" {
		req.SelectedBodyPart = &focus
	}
	return req
}

func checkConversation(conversation []chat.Message) error {
	if n := len(conversation); n == 0 || conversation[n-1].Role != chat.RoleUser {
		return &chat.GatewayError{Message: fmt.Sprintf("conversation must end with a %s message", chat.RoleUser)}
	}
	return nil
}
