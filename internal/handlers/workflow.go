package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/contentforge-backend/internal/platform/logger"
	"github.com/yungbote/contentforge-backend/internal/repos"
	"github.com/yungbote/contentforge-backend/internal/workflow"
)

type WorkflowHandler struct {
	engine   *workflow.Engine
	items    repos.GeneratedItemRepo
	bindings repos.DataSourceBindingRepo
	steps    repos.ApprovalStepRepo
	log      *logger.Logger
}

func NewWorkflowHandler(
	engine *workflow.Engine,
	items repos.GeneratedItemRepo,
	bindings repos.DataSourceBindingRepo,
	steps repos.ApprovalStepRepo,
	baseLog *logger.Logger,
) *WorkflowHandler {
	return &WorkflowHandler{
		engine:   engine,
		items:    items,
		bindings: bindings,
		steps:    steps,
		log:      baseLog.With("handler", "WorkflowHandler"),
	}
}

func (h *WorkflowHandler) itemID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *WorkflowHandler) GetItem(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.items.GetByID(ctx, nil, id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}
	bindings, err := h.bindings.ListByItem(ctx, nil, id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	round, err := h.steps.MaxRound(ctx, nil, id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	steps, err := h.steps.ListByItemRound(ctx, nil, id, round)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item":     item,
		"bindings": bindings,
		"steps":    steps,
		"round":    round,
	})
}

func (h *WorkflowHandler) Submit(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.engine.Submit(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *WorkflowHandler) Decide(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	var req struct {
		Stage    string `json:"stage"`
		Reviewer string `json:"reviewer"`
		Decision string `json:"decision"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Stage == "" || req.Decision == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stage and decision are required"})
		return
	}
	item, err := h.engine.Decide(c.Request.Context(), id, req.Stage, req.Reviewer, req.Decision, req.Note)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *WorkflowHandler) Reassign(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	var req struct {
		Stage    string `json:"stage"`
		Reviewer string `json:"reviewer"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.engine.Reassign(c.Request.Context(), id, req.Stage, req.Reviewer); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reassigned": true})
}

func (h *WorkflowHandler) Publish(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.engine.Publish(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *WorkflowHandler) Revise(c *gin.Context) {
	id, ok := h.itemID(c)
	if !ok {
		return
	}
	item, err := h.engine.Revise(c.Request.Context(), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}
