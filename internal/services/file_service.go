package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/internal/repositories"
	"tutor-ai/pkg/logger"

	"go.uber.org/zap"
)

// BackendForwarder relays a raw request to the agent backend
type BackendForwarder interface {
	Forward(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, error)
}

// proxied backend paths; anything else is rejected
var proxyPrefixes = []string{"/api/files", "/api/presentations/save-slide-image"}

type FileService interface {
	// Proxy returns the backend response; the caller must close its body
	Proxy(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, uint32, error)
	DeleteFile(ctx context.Context, userID, fileID string, header http.Header) (*http.Response, uint32, error)

	ListMetadata(ctx context.Context, userID, vectorStoreID string) ([]*models.FileMetadata, uint32, error)
	SaveMetadata(ctx context.Context, req *dtos.FileMetadataRequest) (*models.FileMetadata, uint32, error)

	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, uint32, error)
	UpdatePreferences(ctx context.Context, req *dtos.PreferencesRequest) (*models.UserPreferences, uint32, error)
}

type fileService struct {
	backend   BackendForwarder
	metaRepo  repositories.FileMetadataRepository
	prefsRepo repositories.PreferencesRepository
	now       func() time.Time
}

func NewFileService(
	backend BackendForwarder,
	metaRepo repositories.FileMetadataRepository,
	prefsRepo repositories.PreferencesRepository,
) FileService {
	return &fileService{
		backend:   backend,
		metaRepo:  metaRepo,
		prefsRepo: prefsRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func isProxiedPath(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	for _, prefix := range proxyPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *fileService) Proxy(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, uint32, error) {
	if !isProxiedPath(path) {
		return nil, http.StatusNotFound, fmt.Errorf("path %s is not proxied", path)
	}
	resp, err := s.backend.Forward(ctx, method, path, query, body, header)
	if err != nil {
		logger.Named("files").Error("backend proxy failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, http.StatusBadGateway, fmt.Errorf("agent backend unavailable")
	}
	return resp, uint32(resp.StatusCode), nil
}

// DeleteFile removes the file from the backend and, on success, its local metadata
func (s *fileService) DeleteFile(ctx context.Context, userID, fileID string, header http.Header) (*http.Response, uint32, error) {
	if fileID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("file id is required")
	}
	resp, status, err := s.Proxy(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID), nil, nil, header)
	if err != nil {
		return nil, status, err
	}
	if resp.StatusCode < 300 && userID != "" {
		if err := s.metaRepo.DeleteByFileID(ctx, userID, fileID); err != nil {
			logger.Named("files").Warn("failed to delete file metadata", zap.String("file_id", fileID), zap.Error(err))
		}
	}
	return resp, status, nil
}

func (s *fileService) ListMetadata(ctx context.Context, userID, vectorStoreID string) ([]*models.FileMetadata, uint32, error) {
	if userID == "" || vectorStoreID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id and vector_store_id are required")
	}
	files, err := s.metaRepo.ListByVectorStore(ctx, userID, vectorStoreID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to list file metadata: %w", err)
	}
	if files == nil {
		files = []*models.FileMetadata{}
	}
	return files, http.StatusOK, nil
}

func (s *fileService) SaveMetadata(ctx context.Context, req *dtos.FileMetadataRequest) (*models.FileMetadata, uint32, error) {
	if req.UserID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	meta := &models.FileMetadata{
		UserID:        req.UserID,
		VectorStoreID: req.VectorStoreID,
		FileID:        req.FileID,
		Name:          req.Name,
		MimeType:      req.MimeType,
		Size:          req.Size,
		UploadedAt:    s.now(),
		Extra:         req.Extra,
	}
	if err := s.metaRepo.Upsert(ctx, meta); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to save file metadata: %w", err)
	}
	return meta, http.StatusOK, nil
}

func (s *fileService) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, uint32, error) {
	if userID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	prefs, err := s.prefsRepo.Get(ctx, userID)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to fetch preferences: %w", err)
	}
	return prefs, http.StatusOK, nil
}

func (s *fileService) UpdatePreferences(ctx context.Context, req *dtos.PreferencesRequest) (*models.UserPreferences, uint32, error) {
	if req.UserID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("user_id is required")
	}
	if req.AutoAddSources == nil {
		return nil, http.StatusBadRequest, fmt.Errorf("auto_add_sources is required")
	}
	prefs := &models.UserPreferences{
		UserID:         req.UserID,
		AutoAddSources: *req.AutoAddSources,
		UpdatedAt:      s.now(),
	}
	if err := s.prefsRepo.Upsert(ctx, prefs); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, http.StatusOK, nil
}
