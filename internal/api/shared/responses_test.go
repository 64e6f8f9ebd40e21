package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, map[string]interface{}{"name": "Espresso"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Espresso"}`, w.Body.String())
}

func TestRespondWithError_Envelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products/x", nil)
	req = req.WithContext(SetTraceID(req.Context(), "trace-1"))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, CodeNotFound, "Product not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t,
		`{"error":{"code":"not_found","message":"Product not found"},"trace_id":"trace-1"}`,
		w.Body.String())
}

func TestRespondWithErrorAndLog_RedactsDetails(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	req = req.WithContext(logger.WithLogger(context.Background(), log))
	w := httptest.NewRecorder()

	err := errors.New("dial postgres://catalog:hunter22@db:5432/products failed")
	RespondWithErrorAndLog(w, req, http.StatusServiceUnavailable, CodeStoreUnavailable,
		"Service temporarily unavailable", err)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeStoreUnavailable, resp.Error.Code)
	assert.Equal(t, "Service temporarily unavailable", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "postgres://")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.NotContains(t, entry["error"], "hunter22")
	assert.Equal(t, "*errors.errorString", entry["error_type"])
}

func TestRespondWithErrorAndLog_ClientErrorsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req = req.WithContext(logger.WithLogger(context.Background(), log))
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, req, http.StatusBadRequest, CodeValidation, "Invalid price", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, buf.String(), "4xx responses must not log above DEBUG")
}
