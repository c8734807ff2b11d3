package routes

import (
	"log"
	"tutor-ai/internal/di"

	"github.com/gin-gonic/gin"
)

func SetupChatSessionRoutes(api *gin.RouterGroup) {
	chatHandler, err := di.GetChatSessionHandler()
	if err != nil {
		log.Fatalf("Failed to get chat session handler: %v", err)
	}
	workspaceHandler, err := di.GetWorkspaceHandler()
	if err != nil {
		log.Fatalf("Failed to get workspace handler: %v", err)
	}

	api.POST("/create-chat-session", chatHandler.Create)

	sessions := api.Group("/chat-sessions")
	{
		sessions.GET("", chatHandler.List)
		sessions.GET("/public", chatHandler.ListPublic)
		sessions.GET("/today-message-count", chatHandler.TodayMessageCount)

		sessions.GET("/:id", chatHandler.Get)
		sessions.PUT("/:id", chatHandler.Update)

		// Messages and the reconciled transcript
		sessions.GET("/:id/messages", chatHandler.ListMessages)
		sessions.POST("/:id/messages", chatHandler.SendMessage)
		sessions.GET("/:id/transcript", chatHandler.Transcript)

		// Workspace artifacts
		sessions.GET("/:id/workspace", workspaceHandler.Get)
		sessions.GET("/:id/slides", workspaceHandler.ListSlides)
		sessions.GET("/:id/flashcards", workspaceHandler.ListFlashcards)

		// Stream routes
		sessions.GET("/:id/stream", chatHandler.StreamChat)
		sessions.POST("/:id/stream/cancel", chatHandler.CancelStream)
	}
}
