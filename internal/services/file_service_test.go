package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
	"tutor-ai/internal/apis/dtos"
	"tutor-ai/internal/models"
	"tutor-ai/pkg/agentbackend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetaRepo struct {
	mu    sync.Mutex
	files map[string]*models.FileMetadata
}

func (r *fakeMetaRepo) ListByVectorStore(_ context.Context, userID, vectorStoreID string) ([]*models.FileMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FileMetadata
	for _, f := range r.files {
		if f.UserID == userID && f.VectorStoreID == vectorStoreID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeMetaRepo) Upsert(_ context.Context, meta *models.FileMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[meta.FileID] = meta
	return nil
}

func (r *fakeMetaRepo) DeleteByFileID(_ context.Context, _ string, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, fileID)
	return nil
}

type fakePrefsRepo struct {
	prefs map[string]*models.UserPreferences
}

func (r *fakePrefsRepo) Get(_ context.Context, userID string) (*models.UserPreferences, error) {
	if p, ok := r.prefs[userID]; ok {
		return p, nil
	}
	return models.DefaultUserPreferences(userID), nil
}

func (r *fakePrefsRepo) Upsert(_ context.Context, prefs *models.UserPreferences) error {
	r.prefs[prefs.UserID] = prefs
	return nil
}

func newFileFixture(t *testing.T, handler http.HandlerFunc) (FileService, *fakeMetaRepo) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	meta := &fakeMetaRepo{files: make(map[string]*models.FileMetadata)}
	backend := agentbackend.NewClient(srv.URL, 5*time.Second)
	return NewFileService(backend, meta, &fakePrefsRepo{prefs: make(map[string]*models.UserPreferences)}), meta
}

func TestFileProxy_ForwardsAllowedPaths(t *testing.T) {
	svc, _ := newFileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"path":"`+r.URL.Path+`","q":"`+r.URL.Query().Get("vector_store_id")+`"}`)
	})

	resp, status, err := svc.Proxy(context.Background(), http.MethodGet, "/api/files", url.Values{"vector_store_id": {"vs1"}}, nil, http.Header{})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, uint32(http.StatusOK), status)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"path":"/api/files","q":"vs1"}`, string(body))
}

func TestFileProxy_RejectsOtherPaths(t *testing.T) {
	svc, _ := newFileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call %s", r.URL.Path)
	})

	for _, path := range []string{"/api/chat", "/api/filesystem", "/api/files/../chat"} {
		_, status, err := svc.Proxy(context.Background(), http.MethodGet, path, nil, nil, http.Header{})
		assert.Error(t, err, path)
		assert.Equal(t, uint32(http.StatusNotFound), status, path)
	}
}

func TestFileProxy_BackendDown(t *testing.T) {
	meta := &fakeMetaRepo{files: make(map[string]*models.FileMetadata)}
	svc := NewFileService(agentbackend.NewClient("http://127.0.0.1:1", time.Second), meta, &fakePrefsRepo{})

	_, status, err := svc.Proxy(context.Background(), http.MethodGet, "/api/files", nil, nil, http.Header{})
	require.Error(t, err)
	assert.Equal(t, uint32(http.StatusBadGateway), status)
}

func TestDeleteFile_RemovesMetadataOnSuccess(t *testing.T) {
	svc, meta := newFileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if strings.HasSuffix(r.URL.Path, "/gone") {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()
	_, _, err := svc.SaveMetadata(ctx, &dtos.FileMetadataRequest{UserID: "u1", VectorStoreID: "vs1", FileID: "f1", Name: "a.pdf"})
	require.NoError(t, err)
	_, _, err = svc.SaveMetadata(ctx, &dtos.FileMetadataRequest{UserID: "u1", VectorStoreID: "vs1", FileID: "gone"})
	require.NoError(t, err)

	resp, status, err := svc.DeleteFile(ctx, "u1", "f1", http.Header{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, uint32(http.StatusNoContent), status)

	resp, status, err = svc.DeleteFile(ctx, "u1", "gone", http.Header{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, uint32(http.StatusNotFound), status)

	files, _, err := svc.ListMetadata(ctx, "u1", "vs1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "gone", files[0].FileID)
	assert.NotContains(t, meta.files, "f1")
}

func TestPreferences(t *testing.T) {
	svc, _ := newFileFixture(t, func(http.ResponseWriter, *http.Request) {})
	ctx := context.Background()

	prefs, _, err := svc.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, prefs.AutoAddSources)

	off := false
	_, status, err := svc.UpdatePreferences(ctx, &dtos.PreferencesRequest{UserID: "u1", AutoAddSources: &off})
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusOK), status)

	prefs, _, err = svc.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, prefs.AutoAddSources)

	_, status, _ = svc.UpdatePreferences(ctx, &dtos.PreferencesRequest{UserID: "u1"})
	assert.Equal(t, uint32(http.StatusBadRequest), status)
}
