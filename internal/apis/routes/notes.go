package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupNotesRoutes(api *gin.RouterGroup) {
	notesHandler, err := di.GetNotesHandler()
	if err != nil {
		log.Fatalf("Failed to get notes handler: %v", err)
	}

	api.GET("/notes", notesHandler.Get)
	api.POST("/notes", notesHandler.Save)
}
