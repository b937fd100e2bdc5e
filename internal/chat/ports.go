package chat

import "context"

// Hints travel with a turn to the completion gateway.
type Hints struct {
	Focus    string
	Language string
	Image    string // data URI
}

// Gateway returns the raw assistant text for a conversation whose last
// message is the newest user message. Failures are *GatewayError.
type Gateway interface {
	Send(ctx context.Context, conversation []Message, hints Hints) (string, error)
}

// Store is the history log of one profile: newest first, bounded.
type Store interface {
	Save(ctx context.Context, conv Conversation) error
	List(ctx context.Context) ([]Conversation, error)
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context, id string) (Conversation, error)
}
