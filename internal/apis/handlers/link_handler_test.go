package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkHandler_Launch(t *testing.T) {
	h := NewLinkHandler(nil, services.NewLaunchService())
	router := gin.New()
	router.GET("/api/launch", h.Launch)

	tests := []struct {
		name   string
		target string
		want   dtos.LaunchParams
	}{
		{
			name:   "own query",
			target: "/api/launch?user_id=u-1&agent=tutor",
			want:   dtos.LaunchParams{UserID: "u-1", Agent: "tutor"},
		},
		{
			name:   "explicit raw launch url",
			target: "/api/launch?q=" + "https%3A%2F%2Fapp.example%2F%3Fconversation_id%3Dc-1%26message%3Dhello",
			want:   dtos.LaunchParams{ConversationID: "c-1", Message: "hello"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Success bool              `json:"success"`
				Data    dtos.LaunchParams `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Success)
			assert.Equal(t, tt.want, body.Data)
		})
	}
}
