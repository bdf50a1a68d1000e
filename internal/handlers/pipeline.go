package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentforge-backend/internal/pipeline"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
)

type PipelineHandler struct {
	orch *pipeline.Orchestrator
	log  *logger.Logger
}

func NewPipelineHandler(orch *pipeline.Orchestrator, baseLog *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		orch: orch,
		log:  baseLog.With("handler", "PipelineHandler"),
	}
}

// Run is the sole pipeline entry point. The result is returned whatever the
// outcome; aborting errors additionally set the mapped status code.
func (h *PipelineHandler) Run(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.TemplateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template_id is required"})
		return
	}
	result, err := h.orch.Run(c.Request.Context(), req)
	if err != nil {
		// The structured result still names the failing stage and
		// reason; only the status code comes from the error.
		c.JSON(runErrorStatus(err, h.log), gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
