package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/common"
	"github.com/suPer8Hu/health-assistant/internal/config"
	"github.com/suPer8Hu/health-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/health-assistant/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// backend function, called by browsers and the CLI
	r.POST("/functions/v1/health-chat", h.HealthChat)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))

	authGroup.POST("/chat/sessions", h.CreateChatSession)
	authGroup.GET("/chat/sessions/:id", h.GetChatSession)
	authGroup.DELETE("/chat/sessions/:id", h.CloseChatSession)
	authGroup.POST("/chat/sessions/:id/turns", h.SendTurn)
	authGroup.POST("/chat/sessions/:id/focus", h.SelectFocus)

	authGroup.GET("/history", h.ListHistory)
	authGroup.GET("/history/:id", h.GetHistory)
	authGroup.DELETE("/history/:id", h.DeleteHistory)
	authGroup.POST("/history/:id/resume", h.ResumeHistory)

	authGroup.GET("/preferences", h.GetPreferences)
	authGroup.PUT("/preferences", h.UpdatePreferences)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
