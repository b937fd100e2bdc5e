package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/common"
	"github.com/suPer8Hu/health-assistant/internal/gateway"
	"github.com/suPer8Hu/health-assistant/internal/history"
	"github.com/suPer8Hu/health-assistant/internal/httpapi/middleware"
)

type sessionView struct {
	ID       string         `json:"id"`
	State    string         `json:"state"`
	Focus    string         `json:"focus,omitempty"`
	Language string         `json:"language"`
	Messages []chat.Message `json:"messages"`
}

func viewOf(s *chat.Session) sessionView {
	return sessionView{
		ID:       s.ID(),
		State:    s.State().String(),
		Focus:    s.Focus(),
		Language: s.Language(),
		Messages: s.Messages(),
	}
}

func profileID(c *gin.Context) (string, bool) {
	pid, ok := middleware.ProfileID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	}
	return pid, ok
}

type createSessionReq struct {
	Language string `json:"language"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}

	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty body

	lang := h.languageFor(c, pid, req.Language)
	s, err := h.Sessions.Create(pid, lang)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	common.OK(c, viewOf(s))
}

func (h *Handler) GetChatSession(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Get(pid, c.Param("id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}
	common.OK(c, viewOf(s))
}

func (h *Handler) CloseChatSession(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	if err := h.Sessions.Close(pid, c.Param("id")); err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}
	common.OK(c, nil)
}

type turnReq struct {
	Message string `json:"message" form:"message"`
	Focus   string `json:"focus" form:"focus"`
	Image   string `json:"image"` // data URI
}

// SendTurn accepts JSON, or multipart form with an optional "image" file.
func (h *Handler) SendTurn(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Get(pid, c.Param("id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}

	in, err := bindTurn(c)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, err.Error())
		return
	}

	reply, err := s.StartTurn(c.Request.Context(), in)
	var ge *chat.GatewayError
	switch {
	case err == nil:
		common.OK(c, gin.H{"reply": reply, "session": viewOf(s)})
	case errors.Is(err, chat.ErrEmptyTurn):
		common.Fail(c, http.StatusBadRequest, 40001, "message is empty")
	case errors.Is(err, chat.ErrTurnInFlight):
		common.Fail(c, http.StatusConflict, 40901, "a reply is still pending")
	case errors.As(err, &ge):
		status := http.StatusBadGateway
		if ge.Status == http.StatusTooManyRequests || ge.Status == http.StatusPaymentRequired {
			status = ge.Status
		}
		msg := ge.Message
		if msg == "" {
			msg = "AI gateway error"
		}
		common.Fail(c, status, 50201, msg)
	default:
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to send message")
	}
}

func bindTurn(c *gin.Context) (chat.TurnInput, error) {
	var req turnReq
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			return chat.TurnInput{}, errors.New("invalid form")
		}
		if fh, err := c.FormFile("image"); err == nil {
			if fh.Size > gateway.MaxImageBytes {
				return chat.TurnInput{}, gateway.ErrImageTooLarge
			}
			f, err := fh.Open()
			if err != nil {
				return chat.TurnInput{}, errors.New("unreadable image")
			}
			defer f.Close()
			data, err := io.ReadAll(io.LimitReader(f, gateway.MaxImageBytes+1))
			if err != nil {
				return chat.TurnInput{}, errors.New("unreadable image")
			}
			uri, err := gateway.EncodeImage(data)
			if err != nil {
				return chat.TurnInput{}, err
			}
			req.Image = uri
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		return chat.TurnInput{}, errors.New("invalid json")
	}

	if req.Image != "" && !strings.HasPrefix(req.Image, "data:image/") {
		return chat.TurnInput{}, gateway.ErrNotImage
	}
	return chat.TurnInput{Text: req.Message, Focus: req.Focus, Image: req.Image}, nil
}

type focusReq struct {
	Topic string `json:"topic"`
}

func (h *Handler) SelectFocus(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Get(pid, c.Param("id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}
	var req focusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	prefill := s.SelectFocus(req.Topic)
	common.OK(c, gin.H{"focus": s.Focus(), "prefill": prefill})
}

func (h *Handler) ListHistory(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	items, err := h.Sessions.History(pid).List(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to load history")
		return
	}
	if items == nil {
		items = []chat.Conversation{}
	}
	common.OK(c, gin.H{"items": items})
}

func (h *Handler) GetHistory(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	conv, err := h.Sessions.History(pid).Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failHistory(c, err)
		return
	}
	common.OK(c, conv)
}

func (h *Handler) DeleteHistory(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	if err := h.Sessions.History(pid).Delete(c.Request.Context(), c.Param("id")); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to delete history entry")
		return
	}
	common.OK(c, nil)
}

func (h *Handler) ResumeHistory(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	lang := h.languageFor(c, pid, "")
	s, err := h.Sessions.Resume(c.Request.Context(), pid, c.Param("id"), lang)
	if err != nil {
		h.failHistory(c, err)
		return
	}
	common.OK(c, viewOf(s))
}

func (h *Handler) failHistory(c *gin.Context, err error) {
	if errors.Is(err, history.ErrNotFound) {
		common.Fail(c, http.StatusNotFound, 40005, "conversation not found")
		return
	}
	common.Fail(c, http.StatusInternalServerError, 50003, "failed to load history")
}
