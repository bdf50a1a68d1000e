package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/template"
	"github.com/yungbote/contentforge-backend/internal/types"
)

type TemplateHandler struct {
	registry template.Registry
	log      *logger.Logger
}

func NewTemplateHandler(registry template.Registry, baseLog *logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		registry: registry,
		log:      baseLog.With("handler", "TemplateHandler"),
	}
}

func (h *TemplateHandler) List(c *gin.Context) {
	filter := repos.TemplateFilter{
		Kind:        c.Query("kind"),
		Category:    c.Query("category"),
		EnabledOnly: c.Query("enabled") == "true",
	}
	templates, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tmpl})
}

func (h *TemplateHandler) Save(c *gin.Context) {
	var req struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Category       string   `json:"category"`
		Kind           string   `json:"kind"`
		Body           string   `json:"body"`
		Variables      []string `json:"variables"`
		Temperature    float64  `json:"temperature"`
		MaxOutputChars int      `json:"max_output_chars"`
		Engine         string   `json:"engine"`
		Enabled        *bool    `json:"enabled"`
		Version        string   `json:"version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	tmpl := &types.Template{
		ID:             req.ID,
		Name:           req.Name,
		Category:       req.Category,
		Kind:           req.Kind,
		Body:           req.Body,
		Variables:      template.VariablesJSON(req.Variables),
		Temperature:    req.Temperature,
		MaxOutputChars: req.MaxOutputChars,
		Engine:         req.Engine,
		Enabled:        enabled,
		Version:        req.Version,
	}
	stored, err := h.registry.Save(c.Request.Context(), tmpl)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": stored})
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
