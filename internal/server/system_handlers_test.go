package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/breakaway/internal/config"
	"github.com/tradelab/breakaway/internal/database"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Port:         0,
		DatabasePath: filepath.Join(dir, "trials.db"),
		DataDir:      dir,
	}

	db, err := database.New(cfg.DatabasePath)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return New(Config{
		Port:   0,
		Log:    zerolog.Nop(),
		DB:     db,
		Config: cfg,
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSystemStatusEndpoint(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
	assert.GreaterOrEqual(t, status.DatabaseMB, 0.0)
	assert.Equal(t, 0, status.TickDatasets)
	assert.NotEmpty(t, status.CheckedAt)
}
