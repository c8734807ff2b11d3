package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupAgentRoutes(api *gin.RouterGroup) {
	agentHandler, err := di.GetAgentHandler()
	if err != nil {
		log.Fatalf("Failed to get agent handler: %v", err)
	}

	agents := api.Group("/agents")
	{
		agents.GET("", agentHandler.List)
		agents.POST("", agentHandler.Create)
		agents.GET("/:id", agentHandler.Get)
		agents.PUT("/:id", agentHandler.Update)
	}
}
