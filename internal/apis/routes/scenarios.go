package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupScenarioRoutes(api *gin.RouterGroup) {
	scenarioHandler, err := di.GetScenarioHandler()
	if err != nil {
		log.Fatalf("Failed to get scenario handler: %v", err)
	}

	scenarios := api.Group("/scenarios")
	{
		scenarios.GET("", scenarioHandler.List)
		scenarios.POST("/generate", scenarioHandler.Generate)
		scenarios.POST("/save", scenarioHandler.Save)

		progress := scenarios.Group("/progress/:conversationId")
		progress.GET("", scenarioHandler.Progress)
		progress.DELETE("", scenarioHandler.Reset)
		progress.POST("/select", scenarioHandler.Select)
		progress.POST("/trigger", scenarioHandler.Trigger)
		progress.POST("/advance", scenarioHandler.Advance)
		progress.POST("/exit", scenarioHandler.Exit)
		progress.POST("/continue", scenarioHandler.Continue)
	}
}
