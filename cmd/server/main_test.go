package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"task-tracker/backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:     config.StoreDriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "data", "tasks.db"),
		},
		Redis: config.RedisConfig{
			PoolSize:     5,
			MaxRetries:   1,
			DialTimeout:  time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			KeyPrefix:    "test",
		},
		Auth: config.AuthConfig{
			JWTSecret:  "main-test-secret",
			TokenTTL:   time.Hour,
			BCryptCost: 4,
		},
	}
}

func smokeTest(t *testing.T, cfg *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	router := buildRouter(cfg, store, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(`{"username":"smoke_user","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestApplication_SQLiteStore(t *testing.T) {
	smokeTest(t, testConfig(t))
}

func TestApplication_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = config.StoreDriverRedis
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mr.Port()

	smokeTest(t, cfg)
	assert.True(t, mr.Exists("test:username:smoke_user"))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"

	_, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestApplicationStartupConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.StoreDriverSQLite, cfg.Store.Driver)
}
