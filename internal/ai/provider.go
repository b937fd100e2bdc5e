package ai

import (
	"context"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat-completion turn. Image, when set, is a data URI
// attached to the message as an extra input part.
type Message struct {
	Role    string
	Content string
	Image   string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StatusError is a non-2xx answer from an upstream model API.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
}
