package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentforge-backend/internal/handlers"
)

type RouterConfig struct {
	AllowOrigins     []string
	TemplateHandler  *handlers.TemplateHandler
	PipelineHandler  *handlers.PipelineHandler
	WorkflowHandler  *handlers.WorkflowHandler
	AnalyticsHandler *handlers.AnalyticsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/runs", cfg.PipelineHandler.Run)

		api.GET("/templates", cfg.TemplateHandler.List)
		api.POST("/templates", cfg.TemplateHandler.Save)
		api.GET("/templates/:id", cfg.TemplateHandler.Get)
		api.DELETE("/templates/:id", cfg.TemplateHandler.Delete)

		api.GET("/items/:id", cfg.WorkflowHandler.GetItem)
		api.POST("/items/:id/submit", cfg.WorkflowHandler.Submit)
		api.POST("/items/:id/decisions", cfg.WorkflowHandler.Decide)
		api.POST("/items/:id/reassign", cfg.WorkflowHandler.Reassign)
		api.POST("/items/:id/publish", cfg.WorkflowHandler.Publish)
		api.POST("/items/:id/revise", cfg.WorkflowHandler.Revise)

		api.GET("/analytics", cfg.AnalyticsHandler.Window)
		api.GET("/health/pipeline", cfg.AnalyticsHandler.Health)
	}

	return router
}
