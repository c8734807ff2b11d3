package routes

import (
	"net/http"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/apis/middlewares"
	"tutor-ai/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupDefaultRoutes(router *gin.Engine) {
	// Add recovery middleware
	router.Use(middleware.CustomRecoveryMiddleware())

	// Health check route
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dtos.Response{
			Success: true,
			Data:    "Server is healthy!",
		})
	})

	api := router.Group("/api")
	api.Use(middlewares.IdentityMiddleware())

	// Setup all route groups
	SetupAgentRoutes(api)
	SetupChatSessionRoutes(api)
	SetupNotesRoutes(api)
	SetupScenarioRoutes(api)
	SetupFileRoutes(api)
	SetupLinkRoutes(api)
}
