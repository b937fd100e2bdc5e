package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/common"
	"github.com/suPer8Hu/health-assistant/internal/locale"
	"github.com/suPer8Hu/health-assistant/internal/prefs"
)

func (h *Handler) GetPreferences(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	p, err := h.Prefs.Get(c.Request.Context(), pid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to load preferences")
		return
	}
	common.OK(c, p)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	pid, ok := profileID(c)
	if !ok {
		return
	}
	var req prefs.Update
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	cur, err := h.Prefs.Get(c.Request.Context(), pid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to load preferences")
		return
	}
	next, err := cur.Apply(req)
	if err != nil {
		switch {
		case errors.Is(err, prefs.ErrUnsupportedLanguage):
			common.Fail(c, http.StatusBadRequest, 40002, "unsupported language")
		case errors.Is(err, prefs.ErrBotNameTooLong):
			common.Fail(c, http.StatusBadRequest, 40003, "chatbot name too long")
		default:
			common.Fail(c, http.StatusBadRequest, 10001, err.Error())
		}
		return
	}
	if err := h.Prefs.Put(c.Request.Context(), pid, next); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to save preferences")
		return
	}
	common.OK(c, next)
}

// languageFor prefers an explicit request language, then the stored
// preference, then the default.
func (h *Handler) languageFor(c *gin.Context, pid, requested string) string {
	if locale.IsSupported(requested) {
		return locale.Normalize(requested)
	}
	if h.Prefs == nil {
		return locale.Default
	}
	p, err := h.Prefs.Get(c.Request.Context(), pid)
	if err != nil {
		h.Logger.Warn("load preferences failed", zap.String("profile_id", pid), zap.Error(err))
		return locale.Default
	}
	return p.Language
}
