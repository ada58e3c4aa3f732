package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/novera/support-assistant/pkg/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func TestLoggingRecordsCompletedRequests(t *testing.T) {
	log, logs := observedLogger()
	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, http.MethodPost, fields["method"])
	assert.Equal(t, "/api/v1/chat", fields["path"])
	assert.EqualValues(t, http.StatusCreated, fields["status"])
	assert.NotEmpty(t, fields["correlation_id"])
	assert.NotContains(t, fields, "tenant_id")
	assert.NotContains(t, fields, "user_id")
}

func TestLoggingPropagatesIncomingCorrelationID(t *testing.T) {
	log, logs := observedLogger()

	var ctxID string
	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "corr-123", ctxID)
	assert.Equal(t, "corr-123", rec.Header().Get("X-Correlation-ID"))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "corr-123", entries[0].ContextMap()["correlation_id"])
}
