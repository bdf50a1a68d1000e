package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentforge-backend/internal/analytics"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
)

type AnalyticsHandler struct {
	svc *analytics.Service
	log *logger.Logger
}

func NewAnalyticsHandler(svc *analytics.Service, baseLog *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		svc: svc,
		log: baseLog.With("handler", "AnalyticsHandler"),
	}
}

func (h *AnalyticsHandler) Window(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	report, err := h.svc.Window(c.Request.Context(), days)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analytics": report})
}

func (h *AnalyticsHandler) Health(c *gin.Context) {
	report, err := h.svc.Health(c.Request.Context())
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"health": report})
}
