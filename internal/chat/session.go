package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/formatter"
	"github.com/suPer8Hu/health-assistant/internal/locale"
)

type TurnState int

const (
	TurnIdle TurnState = iota
	TurnAwaitingResponse
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// TurnInput is one user turn. Focus overrides the session focus when set.
type TurnInput struct {
	Text  string
	Focus string
	Image string // data URI
}

type SessionOption func(*Session)

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithLanguage(code string) SessionOption {
	return func(s *Session) { s.language = locale.Normalize(code) }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session owns one live conversation and drives its turns.
// At most one turn is in flight at a time.
type Session struct {
	gateway Gateway
	store   Store
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	id         string
	createdAt  time.Time
	preview    string
	messages   []Message
	state      TurnState
	focus      string
	language   string
	lastActive time.Time
}

// NewSession starts a fresh conversation seeded with the greeting.
func NewSession(id string, gw Gateway, store Store, opts ...SessionOption) *Session {
	s := newSession(id, gw, store, opts)
	s.messages = []Message{{Role: RoleAssistant, Content: Greeting}}
	return s
}

// ResumeSession continues a stored conversation.
func ResumeSession(conv Conversation, gw Gateway, store Store, opts ...SessionOption) *Session {
	s := newSession(conv.ID, gw, store, opts)
	s.createdAt = conv.CreatedAt
	s.preview = conv.Preview
	s.messages = append([]Message(nil), conv.Messages...)
	if len(s.messages) == 0 {
		s.messages = []Message{{Role: RoleAssistant, Content: Greeting}}
	}
	return s
}

func newSession(id string, gw Gateway, store Store, opts []SessionOption) *Session {
	s := &Session{
		id:       id,
		gateway:  gw,
		store:    store,
		logger:   zap.NewNop(),
		now:      time.Now,
		language: locale.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) SetLanguage(code string) {
	s.mu.Lock()
	s.language = locale.Normalize(code)
	s.mu.Unlock()
}

// Snapshot returns the conversation as it would be persisted now.
func (s *Session) Snapshot() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SelectFocus records the body part as context for later turns and returns
// the text to pre-fill the input with. It never starts a turn.
// An empty topic clears the focus.
func (s *Session) SelectFocus(topic string) string {
	topic = strings.TrimSpace(topic)
	s.mu.Lock()
	s.focus = topic
	s.lastActive = s.now()
	s.mu.Unlock()
	if topic == "" {
		return ""
	}
	return FocusPrompt(topic)
}

// StartTurn appends the user message, asks the gateway for a reply and
// appends its formatted text. On gateway failure the user message stays, nothing is
// persisted, and a *GatewayError is returned.
func (s *Session) StartTurn(ctx context.Context, in TurnInput) (Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Image == "" {
		return Message{}, ErrEmptyTurn
	}

	s.mu.Lock()
	if s.state != TurnIdle {
		s.mu.Unlock()
		return Message{}, ErrTurnInFlight
	}
	if f := strings.TrimSpace(in.Focus); f != "" {
		s.focus = f
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})
	s.state = TurnAwaitingResponse
	s.lastActive = s.now()
	conversation := append([]Message(nil), s.messages...)
	hints := Hints{Focus: s.focus, Language: s.language, Image: in.Image}
	s.mu.Unlock()

	reply, err := s.gateway.Send(ctx, conversation, hints)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = TurnIdle
	s.lastActive = s.now()
	if err != nil {
		s.logger.Warn("chat turn failed", zap.String("conversation_id", s.id), zap.Error(err))
		return Message{}, AsGatewayError(err)
	}

	msg := Message{Role: RoleAssistant, Content: formatter.Format(reply)}
	s.messages = append(s.messages, msg)
	s.persistLocked(ctx)
	return msg, nil
}

func (s *Session) snapshotLocked() Conversation {
	conv := Conversation{
		ID:        s.id,
		CreatedAt: s.createdAt,
		Preview:   s.preview,
		Messages:  append([]Message(nil), s.messages...),
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now()
	}
	if conv.Preview == "" {
		conv.Preview = PreviewOf(conv.Messages)
	}
	return conv
}

// persistLocked writes the conversation once it holds more than the greeting.
// Store failures are logged and otherwise ignored.
func (s *Session) persistLocked(ctx context.Context) {
	if s.store == nil || len(s.messages) <= 1 {
		return
	}
	conv := s.snapshotLocked()
	if err := s.store.Save(context.WithoutCancel(ctx), conv); err != nil {
		s.logger.Warn("persist conversation failed", zap.String("conversation_id", s.id), zap.Error(err))
		return
	}
	s.createdAt = conv.CreatedAt
	s.preview = conv.Preview
}
