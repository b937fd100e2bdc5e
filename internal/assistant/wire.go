package assistant

// WireMessage is a conversation turn as clients send it.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of POST /functions/v1/health-chat.
type Request struct {
	Messages         []WireMessage `json:"messages"`
	SelectedBodyPart *string       `json:"selectedBodyPart"`
	Language         string        `json:"language"`
	Image            string        `json:"image,omitempty"`
}

// Response carries either the raw model text or an error message.
type Response struct {
	Response *string `json:"response,omitempty"`
	Error    string  `json:"error,omitempty"`
}
