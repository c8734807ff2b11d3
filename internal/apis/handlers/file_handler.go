package handlers

import (
	"io"
	"net/http"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/services"
	"tutor-ai/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// response headers copied from the agent backend
var forwardedHeaders = []string{"Content-Disposition", "Cache-Control", "ETag", "Last-Modified"}

type FileHandler struct {
	fileService services.FileService
}

func NewFileHandler(fileService services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func writeProxied(c *gin.Context, resp *http.Response) {
	defer resp.Body.Close()

	extra := make(map[string]string)
	for _, name := range forwardedHeaders {
		if v := resp.Header.Get(name); v != "" {
			extra[name] = v
		}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, extra)
}

// @Summary Proxy a file request to the agent backend
// @Description Uploads, listings and downloads under /api/files and slide image saves

func (h *FileHandler) Proxy(c *gin.Context) {
	var body io.Reader
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		body = c.Request.Body
	}
	resp, statusCode, err := h.fileService.Proxy(
		c.Request.Context(),
		c.Request.Method,
		c.Request.URL.Path,
		c.Request.URL.Query(),
		body,
		c.Request.Header.Clone(),
	)
	if err != nil {
		logger.Named("files").Warn("proxy failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		respond(c, nil, statusCode, err)
		return
	}
	writeProxied(c, resp)
}

func (h *FileHandler) Delete(c *gin.Context) {
	resp, statusCode, err := h.fileService.DeleteFile(c.Request.Context(), userID(c, ""), c.Param("id"), c.Request.Header.Clone())
	if err != nil {
		respond(c, nil, statusCode, err)
		return
	}
	writeProxied(c, resp)
}

func (h *FileHandler) ListMetadata(c *gin.Context) {
	response, statusCode, err := h.fileService.ListMetadata(c.Request.Context(), userID(c, ""), c.Query("vector_store_id"))
	respond(c, response, statusCode, err)
}

func (h *FileHandler) SaveMetadata(c *gin.Context) {
	var req dtos.FileMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.fileService.SaveMetadata(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}

func (h *FileHandler) GetPreferences(c *gin.Context) {
	response, statusCode, err := h.fileService.GetPreferences(c.Request.Context(), userID(c, ""))
	respond(c, response, statusCode, err)
}

func (h *FileHandler) UpdatePreferences(c *gin.Context) {
	var req dtos.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = userID(c, req.UserID)

	response, statusCode, err := h.fileService.UpdatePreferences(c.Request.Context(), &req)
	respond(c, response, statusCode, err)
}
