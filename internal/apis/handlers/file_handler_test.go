package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"tutor-ai/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileService struct {
	services.FileService

	path  string
	query url.Values
	body  string
	err   error
}

func (f *fakeFileService) Proxy(ctx context.Context, method, path string, query url.Values, body io.Reader, header http.Header) (*http.Response, uint32, error) {
	if f.err != nil {
		return nil, http.StatusBadGateway, f.err
	}
	f.path, f.query = path, query
	if body != nil {
		b, _ := io.ReadAll(body)
		f.body = string(b)
	}
	return &http.Response{
		StatusCode:    http.StatusCreated,
		ContentLength: -1,
		Header: http.Header{
			"Content-Type":        {"application/pdf"},
			"Content-Disposition": {`attachment; filename="notes.pdf"`},
		},
		Body: io.NopCloser(strings.NewReader("%PDF")),
	}, http.StatusCreated, nil
}

func newFileRouter(svc services.FileService) *gin.Engine {
	h := NewFileHandler(svc)
	router := gin.New()
	router.Any("/api/files/:id", h.Proxy)
	return router
}

func TestFileHandler_ProxyStreamsBackendResponse(t *testing.T) {
	svc := &fakeFileService{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload?vector_store_id=vs", strings.NewReader("payload"))
	newFileRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="notes.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String())

	assert.Equal(t, "/api/files/upload", svc.path)
	assert.Equal(t, "vs", svc.query.Get("vector_store_id"))
	assert.Equal(t, "payload", svc.body)
}

func TestFileHandler_ProxyFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newFileRouter(&fakeFileService{err: errors.New("backend unavailable")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/f-1", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeResponse(t, rec)
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)
}
