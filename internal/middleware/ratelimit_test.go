package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func limitedRequest(userID, tenantID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
	ctx := req.Context()
	if userID != "" {
		ctx = context.WithValue(ctx, UserIDKey, userID)
	}
	if tenantID != "" {
		ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	}
	return req.WithContext(ctx)
}

func TestUserRateLimitEnforcesPerUserLimit(t *testing.T) {
	handler := UserRateLimit(2, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limitedRequest("user-1", "tenant-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("user-1", "tenant-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different user is keyed separately.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("user-2", "tenant-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeysByTenant(t *testing.T) {
	handler := RateLimit(1, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("user-1", "tenant-1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Same tenant, different user: still throttled.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("user-2", "tenant-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest("user-1", "tenant-2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
