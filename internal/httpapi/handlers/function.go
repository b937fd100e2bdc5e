package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/assistant"
	"github.com/suPer8Hu/health-assistant/internal/gateway"
	"github.com/suPer8Hu/health-assistant/internal/httpapi/middleware"
)

// HealthChat is the backend function. It speaks the bare
// {response} / {error} envelope instead of the API envelope.
func (h *Handler) HealthChat(c *gin.Context) {
	if !h.functionKeyOK(c) {
		c.JSON(http.StatusUnauthorized, assistant.Response{Error: "invalid api key"})
		return
	}

	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, assistant.Response{Error: "invalid json"})
		return
	}

	reply, err := h.Assistant.Reply(c.Request.Context(), req)
	if err != nil {
		status, msg := gateway.StatusFor(err)
		h.Logger.Warn("health chat failed",
			zap.Int("status", status),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err),
		)
		c.JSON(status, assistant.Response{Error: msg})
		return
	}
	c.JSON(http.StatusOK, assistant.Response{Response: &reply})
}

// functionKeyOK checks the apikey header or bearer token when a function key
// is configured.
func (h *Handler) functionKeyOK(c *gin.Context) bool {
	want := h.Cfg.FunctionAPIKey
	if want == "" {
		return true
	}
	got := c.GetHeader("apikey")
	if got == "" {
		got, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
