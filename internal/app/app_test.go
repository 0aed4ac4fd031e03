package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"skilltrack_backend/internal/config"
	"skilltrack_backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: gin.TestMode},
		Log:    config.LogConfig{Level: "error"},
		Storage: config.StorageConfig{
			Backend:      config.BackendFile,
			DocumentPath: filepath.Join(dir, "user_progress.json"),
			DocumentName: "user_progress",
			BackupType:   config.BackupLocal,
			BackupDir:    filepath.Join(dir, "backups"),
		},
		Catalog: config.CatalogConfig{Dir: filepath.Join(dir, "skill_steps")},
	}
}

func TestInitStoreCreatesDocument(t *testing.T) {
	cfg := testConfig(t)

	store, err := InitStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	raw, err := os.ReadFile(cfg.Storage.DocumentPath)
	require.NoError(t, err)
	assert.NoError(t, repository.ValidateDocument(raw))
	assert.Nil(t, store.DB)
}

func TestNewBackupSink(t *testing.T) {
	cfg := testConfig(t)

	sink, err := newBackupSink(context.Background(), &config.StorageConfig{BackupType: config.BackupNone})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = newBackupSink(context.Background(), &cfg.Storage)
	require.NoError(t, err)
	assert.IsType(t, &repository.LocalBackupSink{}, sink)
}

func TestAppServesRoutes(t *testing.T) {
	cfg := testConfig(t)

	application, err := NewApp(cfg)
	require.NoError(t, err)
	defer application.Close()

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/health", http.StatusOK},
		{http.MethodGet, "/api/skills", http.StatusOK},
		{http.MethodPost, "/api/user/u1/create", http.StatusOK},
		{http.MethodGet, "/api/user/u1/progress", http.StatusOK},
		{http.MethodGet, "/api/user/nobody/progress", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		application.Router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}
