package middlewares

import (
	"log"
	"net/http"
	"strings"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/di"
	"tutor-ai/internal/utils"
	"tutor-ai/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var jwtService utils.JWTService

// IdentityMiddleware resolves the JWT service from the container
func IdentityMiddleware() gin.HandlerFunc {
	if jwtService == nil {
		if err := di.DiContainer.Invoke(func(service utils.JWTService) {
			jwtService = service
		}); err != nil {
			log.Fatalf("Failed to provide JWT service: %v", err)
		}
	}
	return NewIdentityMiddleware(jwtService)
}

// NewIdentityMiddleware sets userID from a bearer token when one is sent.
// Requests without a token pass through and name their user with user_id.
func NewIdentityMiddleware(service utils.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dtos.Response{
				Success: false,
				Error:   utils.ToStringPtr("Invalid authorization header format"),
			})
			return
		}

		userID, err := service.ValidateToken(parts[1])
		if err != nil {
			logger.Named("identity").Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dtos.Response{
				Success: false,
				Error:   utils.ToStringPtr("Invalid or expired token"),
			})
			return
		}

		c.Set("userID", *userID)
		c.Next()
	}
}
