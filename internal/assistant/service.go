// Package assistant is the backend function behind the chat: it wraps the
// conversation in the medical system prompt and asks a model provider for a
// JSON answer.
package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/ai"
	"github.com/suPer8Hu/health-assistant/internal/locale"
)

var (
	ErrNoUserMessage = errors.New("assistant: conversation has no user message")
	ErrEmptyReply    = errors.New("assistant: provider returned an empty reply")
)

type Service struct {
	registry *ai.Registry
	provider string
	model    string
	logger   *zap.Logger
}

func NewService(registry *ai.Registry, provider, model string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, provider: provider, model: model, logger: logger}
}

// Reply returns the raw model text for req.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	msgs := sanitize(req.Messages)
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == ai.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return "", ErrNoUserMessage
	}
	if req.Image != "" {
		msgs[last].Image = req.Image
	}

	bodyPart := ""
	if req.SelectedBodyPart != nil {
		bodyPart = *req.SelectedBodyPart
	}
	language := locale.Normalize(req.Language)

	provider, err := s.registry.Get(ctx, s.provider, s.model)
	if err != nil {
		return "", err
	}

	full := make([]ai.Message, 0, len(msgs)+1)
	full = append(full, ai.Message{Role: ai.RoleSystem, Content: SystemPrompt(language, bodyPart)})
	full = append(full, msgs...)

	reply, err := provider.Chat(ctx, full)
	if err != nil {
		s.logger.Error("ai provider call failed",
			zap.String("provider", s.provider),
			zap.String("model", s.model),
			zap.Error(err),
		)
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}

	s.logger.Debug("ai provider replied",
		zap.String("provider", s.provider),
		zap.Int("messages", len(full)),
		zap.String("language", language),
		zap.Bool("image", req.Image != ""),
	)
	return reply, nil
}

// sanitize keeps only user and assistant turns; clients cannot inject
// system messages.
func sanitize(in []WireMessage) []ai.Message {
	out := make([]ai.Message, 0, len(in))
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != ai.RoleUser && role != ai.RoleAssistant {
			continue
		}
		out = append(out, ai.Message{Role: role, Content: m.Content})
	}
	return out
}
