package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is what the history log stores. CreatedAt and Preview are set
// on first persist and never change afterwards.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"timestamp"`
	Preview   string    `json:"preview"`
	Messages  []Message `json:"messages"`
}

func (c Conversation) Clone() Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}

const Greeting = "Hello! I'm your AI health assistant. How can I help you today? You can describe your symptoms or select a body part to learn more."

const (
	previewMaxRunes = 50
	previewEllipsis = "..."
)

// PreviewOf derives the history preview from the first user message.
func PreviewOf(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if utf8.RuneCountInString(text) <= previewMaxRunes {
			return text
		}
		r := []rune(text)
		return string(r[:previewMaxRunes]) + previewEllipsis
	}
	return ""
}

// FocusPrompt is the input pre-filled when a body part is selected.
func FocusPrompt(topic string) string {
	return "Tell me about the " + topic + " and common health issues related to it."
}
