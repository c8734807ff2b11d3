package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupFileRoutes(api *gin.RouterGroup) {
	fileHandler, err := di.GetFileHandler()
	if err != nil {
		log.Fatalf("Failed to get file handler: %v", err)
	}

	files := api.Group("/files")
	{
		// Metadata and preferences live in MongoDB
		files.GET("/metadata", fileHandler.ListMetadata)
		files.PUT("/metadata", fileHandler.SaveMetadata)

		files.DELETE("/:id", fileHandler.Delete)

		// Everything else is proxied to the agent backend
		files.GET("", fileHandler.Proxy)
		files.POST("", fileHandler.Proxy)
		files.GET("/:id", fileHandler.Proxy)
		files.GET("/:id/content", fileHandler.Proxy)
	}

	api.POST("/presentations/save-slide-image", fileHandler.Proxy)

	api.GET("/preferences", fileHandler.GetPreferences)
	api.PUT("/preferences", fileHandler.UpdatePreferences)
}
