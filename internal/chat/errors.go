package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTurn       = errors.New("chat: message is empty")
	ErrTurnInFlight    = errors.New("chat: a turn is already awaiting a response")
	ErrSessionNotFound = errors.New("chat: session not found")
)

// GatewayError is any failure to obtain an assistant reply: transport error,
// non-2xx status, or a malformed success envelope.
type GatewayError struct {
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("gateway: status %d: %s", e.Status, msg)
	}
	return "gateway: " + msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// AsGatewayError wraps err unless it already is a *GatewayError.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{Err: err}
}
