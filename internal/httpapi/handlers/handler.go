package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/assistant"
	"github.com/suPer8Hu/health-assistant/internal/chat"
	"github.com/suPer8Hu/health-assistant/internal/common"
	"github.com/suPer8Hu/health-assistant/internal/config"
	"github.com/suPer8Hu/health-assistant/internal/prefs"
)

type Handler struct {
	Cfg       config.Config
	Sessions  *chat.Manager
	Assistant *assistant.Service
	Prefs     prefs.Store
	Logger    *zap.Logger
}

func NewHandler(cfg config.Config, sessions *chat.Manager, svc *assistant.Service, p prefs.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Cfg: cfg, Sessions: sessions, Assistant: svc, Prefs: p, Logger: logger}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}
