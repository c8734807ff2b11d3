package handlers

import (
	"net/http"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/utils"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, data interface{}, statusCode uint32, err error) {
	if err != nil {
		c.JSON(int(statusCode), dtos.Response{
			Success: false,
			Error:   utils.ToStringPtr(err.Error()),
		})
		return
	}
	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    data,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dtos.Response{
		Success: false,
		Error:   utils.ToStringPtr(err.Error()),
	})
}

// userID prefers the authenticated identity over ids supplied by the client
func userID(c *gin.Context, supplied string) string {
	if id := c.GetString("userID"); id != "" {
		return id
	}
	if supplied != "" {
		return supplied
	}
	return c.Query("user_id")
}
