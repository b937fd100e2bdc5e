package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/suPer8Hu/health-assistant/internal/ai"
	"github.com/suPer8Hu/health-assistant/internal/assistant"
	"github.com/suPer8Hu/health-assistant/internal/chat"
)

// Local serves turns from an in-process assistant.Service.
type Local struct {
	svc *assistant.Service
}

func NewLocal(svc *assistant.Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) Send(ctx context.Context, conversation []chat.Message, hints chat.Hints) (string, error) {
	if err := checkConversation(conversation); err != nil {
		return "", err
	}
	reply, err := l.svc.Reply(ctx, BuildRequest(conversation, hints))
	if err != nil {
		status, msg := StatusFor(err)
		return "", &chat.GatewayError{Status: status, Message: msg, Err: err}
	}
	return reply, nil
}

// StatusFor maps a backend function failure to the HTTP status and message
// reported to clients.
func StatusFor(err error) (int, string) {
	var se *ai.StatusError
	switch {
	case errors.As(err, &se) && se.Status == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "Rate limit exceeded, please try again later."
	case errors.As(err, &se) && se.Status == http.StatusPaymentRequired:
		return http.StatusPaymentRequired, "AI usage limit reached, please add credits."
	case errors.Is(err, assistant.ErrNoUserMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "AI gateway timed out"
	default:
		return http.StatusInternalServerError, "AI gateway error"
	}
}
