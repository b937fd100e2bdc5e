// Package history keeps each profile's bounded, newest-first log of past
// conversations.
package history

import (
	"errors"

	"github.com/suPer8Hu/health-assistant/internal/chat"
)

// MaxEntries bounds the log of one profile.
const MaxEntries = 50

var ErrNotFound = errors.New("history: conversation not found")

// Backend hands out the log of a profile.
type Backend interface {
	For(owner string) chat.Store
}

// Upsert puts conv at the front of log, replacing any entry with the same id
// and dropping entries beyond MaxEntries. An existing entry keeps its
// timestamp and preview.
func Upsert(log []chat.Conversation, conv chat.Conversation) []chat.Conversation {
	if prev, ok := Find(log, conv.ID); ok {
		if !prev.CreatedAt.IsZero() {
			conv.CreatedAt = prev.CreatedAt
		}
		if prev.Preview != "" {
			conv.Preview = prev.Preview
		}
	}
	out := make([]chat.Conversation, 0, min(len(log)+1, MaxEntries))
	out = append(out, conv.Clone())
	for _, c := range log {
		if len(out) == MaxEntries {
			break
		}
		if c.ID != conv.ID {
			out = append(out, c)
		}
	}
	return out
}

// Remove drops the entry with id, if present.
func Remove(log []chat.Conversation, id string) []chat.Conversation {
	out := make([]chat.Conversation, 0, len(log))
	for _, c := range log {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func Find(log []chat.Conversation, id string) (chat.Conversation, bool) {
	for _, c := range log {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return chat.Conversation{}, false
}

func cloneAll(log []chat.Conversation) []chat.Conversation {
	out := make([]chat.Conversation, len(log))
	for i, c := range log {
		out[i] = c.Clone()
	}
	return out
}
