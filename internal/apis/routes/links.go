package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupLinkRoutes(api *gin.RouterGroup) {
	linkHandler, err := di.GetLinkHandler()
	if err != nil {
		log.Fatalf("Failed to get link handler: %v", err)
	}

	api.GET("/link-preview", linkHandler.Preview)
	api.GET("/launch", linkHandler.Launch)
}
