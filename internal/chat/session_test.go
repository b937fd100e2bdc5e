package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingGateway struct {
	mu    sync.Mutex
	calls int
	last  []Message
	hints Hints
	reply string
	err   error
	block chan struct{}
}

func (g *recordingGateway) Send(ctx context.Context, conversation []Message, hints Hints) (string, error) {
	g.mu.Lock()
	g.calls++
	// copy to avoid mutations
	g.last = append([]Message(nil), conversation...)
	g.hints = hints
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.reply, g.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved []Conversation
	err   error
}

func (s *fakeStore) Save(ctx context.Context, conv Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, conv.Clone())
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]Conversation, error) { return nil, nil }

func (s *fakeStore) Delete(ctx context.Context, id string) error { return nil }

func (s *fakeStore) Load(ctx context.Context, id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].ID == id {
			return s.saved[i].Clone(), nil
		}
	}
	return Conversation{}, ErrSessionNotFound
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestNewSession_StartsWithGreeting(t *testing.T) {
	s := NewSession("c1", &recordingGateway{}, &fakeStore{})

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleAssistant || msgs[0].Content != Greeting {
		t.Fatalf("unexpected initial messages: %+v", msgs)
	}
	if s.State() != TurnIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}
	if s.Language() != "en" {
		t.Fatalf("expected default language en, got %q", s.Language())
	}
}

func TestStartTurn_AppendsFormattedReplyAndPersists(t *testing.T) {
	gw := &recordingGateway{reply: `{"urgency":"LOW","self_care":["rest","ice"]}`}
	store := &fakeStore{}
	s := NewSession("c1", gw, store, WithClock(fixedClock()), WithLanguage("hi"))

	reply, err := s.StartTurn(context.Background(), TurnInput{Text: "knee pain"})
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	want := "ℹ️ Urgency: LOW\n\n**Self-Care Suggestions:**\n• rest\n• ice"
	if reply.Role != RoleAssistant || reply.Content != want {
		t.Fatalf("unexpected reply: %q", reply.Content)
	}
	if s.State() != TurnIdle {
		t.Fatalf("expected idle, got %s", s.State())
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[1] != (Message{Role: RoleUser, Content: "knee pain"}) {
		t.Fatalf("unexpected user message: %+v", msgs[1])
	}

	// gateway sees greeting then the new user message
	if len(gw.last) != 2 || gw.last[1] != (Message{Role: RoleUser, Content: "knee pain"}) {
		t.Fatalf("unexpected gateway conversation: %+v", gw.last)
	}
	if gw.hints.Language != "hi" || gw.hints.Focus != "" {
		t.Fatalf("unexpected hints: %+v", gw.hints)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.ID != "c1" || saved.Preview != "knee pain" || len(saved.Messages) != 3 {
		t.Fatalf("unexpected saved conversation: %+v", saved)
	}
	if saved.Messages[2].Content != want {
		t.Fatalf("expected formatted text persisted, got %q", saved.Messages[2].Content)
	}
	if !saved.CreatedAt.Equal(fixedClock()()) {
		t.Fatalf("unexpected timestamp: %v", saved.CreatedAt)
	}
}

func TestStartTurn_PlainTextReplyIsKeptVerbatim(t *testing.T) {
	gw := &recordingGateway{reply: "hello"}
	s := NewSession("c1", gw, &fakeStore{})

	reply, err := s.StartTurn(context.Background(), TurnInput{Text: "hi"})
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if reply.Content != "hello" {
		t.Fatalf("expected verbatim reply, got %q", reply.Content)
	}
}

func TestStartTurn_KeepsCreatedAtAndPreviewAcrossTurns(t *testing.T) {
	gw := &recordingGateway{reply: "ok"}
	store := &fakeStore{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewSession("c1", gw, store, WithClock(func() time.Time { return now }))

	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "first question"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	now = now.Add(time.Hour)
	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "second question"}); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if len(store.saved) != 2 {
		t.Fatalf("expected two saves, got %d", len(store.saved))
	}
	first, second := store.saved[0], store.saved[1]
	if !second.CreatedAt.Equal(first.CreatedAt) || second.Preview != "first question" {
		t.Fatalf("metadata changed: %+v vs %+v", first, second)
	}
	if len(second.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(second.Messages))
	}
}

func TestStartTurn_GatewayFailureKeepsUserMessage(t *testing.T) {
	gw := &recordingGateway{err: &GatewayError{Status: 429, Message: "Rate limit exceeded"}}
	store := &fakeStore{}
	s := NewSession("c1", gw, store)

	_, err := s.StartTurn(context.Background(), TurnInput{Text: "headache"})
	var ge *GatewayError
	if !errors.As(err, &ge) || ge.Status != 429 {
		t.Fatalf("expected gateway error 429, got %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 || msgs[1].Content != "headache" {
		t.Fatalf("expected user message to remain: %+v", msgs)
	}
	if len(store.saved) != 0 {
		t.Fatalf("expected no save on failure, got %d", len(store.saved))
	}
	if s.State() != TurnIdle {
		t.Fatalf("expected idle after failure, got %s", s.State())
	}
}

func TestStartTurn_WrapsPlainErrors(t *testing.T) {
	gw := &recordingGateway{err: errors.New("connection refused")}
	s := NewSession("c1", gw, nil)

	_, err := s.StartTurn(context.Background(), TurnInput{Text: "hi"})
	var ge *GatewayError
	if !errors.As(err, &ge) || !strings.Contains(ge.Error(), "connection refused") {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
}

func TestStartTurn_RejectsEmptyInput(t *testing.T) {
	gw := &recordingGateway{reply: "ok"}
	s := NewSession("c1", gw, &fakeStore{})

	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "   "}); !errors.Is(err, ErrEmptyTurn) {
		t.Fatalf("expected ErrEmptyTurn, got %v", err)
	}
	if gw.calls != 0 || len(s.Messages()) != 1 {
		t.Fatalf("empty input must not start a turn")
	}
}

func TestStartTurn_ImageOnlyIsAccepted(t *testing.T) {
	gw := &recordingGateway{reply: "ok"}
	s := NewSession("c1", gw, &fakeStore{})

	if _, err := s.StartTurn(context.Background(), TurnInput{Image: "data:image/png;base64,AAAA"}); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if gw.hints.Image != "data:image/png;base64,AAAA" {
		t.Fatalf("image not forwarded: %+v", gw.hints)
	}
}

func TestStartTurn_RejectsSecondTurnWhileAwaiting(t *testing.T) {
	gw := &recordingGateway{reply: "ok", block: make(chan struct{})}
	s := NewSession("c1", gw, &fakeStore{})

	done := make(chan error, 1)
	go func() {
		_, err := s.StartTurn(context.Background(), TurnInput{Text: "first"})
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != TurnAwaitingResponse {
		if time.Now().After(deadline) {
			t.Fatalf("turn never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "second"}); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	close(gw.block)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 || msgs[1].Content != "first" || msgs[2].Content != "ok" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestStartTurn_StoreFailureIsSwallowed(t *testing.T) {
	gw := &recordingGateway{reply: "ok"}
	s := NewSession("c1", gw, &fakeStore{err: errors.New("disk full")})

	reply, err := s.StartTurn(context.Background(), TurnInput{Text: "hi"})
	if err != nil {
		t.Fatalf("store errors must not fail the turn: %v", err)
	}
	if reply.Content != "ok" || len(s.Messages()) != 3 {
		t.Fatalf("unexpected state after turn: %+v", s.Messages())
	}
}

func TestSelectFocus_PrefillsWithoutStartingTurn(t *testing.T) {
	gw := &recordingGateway{reply: "ok"}
	s := NewSession("c1", gw, &fakeStore{})

	prefill := s.SelectFocus("Knee")
	if prefill != "Tell me about the Knee and common health issues related to it." {
		t.Fatalf("unexpected prefill: %q", prefill)
	}
	if gw.calls != 0 || len(s.Messages()) != 1 {
		t.Fatalf("selecting a focus must not start a turn")
	}

	if _, err := s.StartTurn(context.Background(), TurnInput{Text: prefill}); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if gw.hints.Focus != "Knee" {
		t.Fatalf("expected focus Knee, got %q", gw.hints.Focus)
	}

	// per-turn focus overrides and sticks
	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "and the ankle?", Focus: "Ankle"}); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if gw.hints.Focus != "Ankle" || s.Focus() != "Ankle" {
		t.Fatalf("expected focus Ankle, got %q", gw.hints.Focus)
	}

	if s.SelectFocus("") != "" || s.Focus() != "" {
		t.Fatalf("empty topic should clear focus")
	}
}

func TestResumeSession_ContinuesStoredConversation(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	conv := Conversation{
		ID:        "c9",
		CreatedAt: created,
		Preview:   "old question",
		Messages: []Message{
			{Role: RoleAssistant, Content: Greeting},
			{Role: RoleUser, Content: "old question"},
			{Role: RoleAssistant, Content: "old answer"},
		},
	}
	gw := &recordingGateway{reply: "new answer"}
	store := &fakeStore{}
	s := ResumeSession(conv, gw, store)

	if _, err := s.StartTurn(context.Background(), TurnInput{Text: "follow up"}); err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if len(gw.last) != 4 {
		t.Fatalf("expected full history sent, got %d messages", len(gw.last))
	}
	saved := store.saved[0]
	if saved.ID != "c9" || !saved.CreatedAt.Equal(created) || saved.Preview != "old question" || len(saved.Messages) != 5 {
		t.Fatalf("unexpected saved conversation: %+v", saved)
	}
}

func TestPreviewOf(t *testing.T) {
	long := strings.Repeat("ab", 40)
	cases := []struct {
		name string
		msgs []Message
		want string
	}{
		{"no user message", []Message{{Role: RoleAssistant, Content: Greeting}}, ""},
		{"first user message", []Message{{Role: RoleAssistant, Content: "x"}, {Role: RoleUser, Content: " knee   pain "}, {Role: RoleUser, Content: "later"}}, "knee pain"},
		{"truncated", []Message{{Role: RoleUser, Content: long}}, long[:50] + "..."},
		{"runes not bytes", []Message{{Role: RoleUser, Content: strings.Repeat("घ", 60)}}, strings.Repeat("घ", 50) + "..."},
	}
	for _, tc := range cases {
		if got := PreviewOf(tc.msgs); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
