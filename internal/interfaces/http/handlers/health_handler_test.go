package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, path string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.GET(path, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", NewChecker("broken", func(context.Context) error {
		return errors.New("down")
	}))

	w := serve(t, "/healthz", h.Liveness)

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestHealthHandler_Readiness_NoCheckers(t *testing.T) {
	w := serve(t, "/readyz", NewHealthHandler("dev").Readiness)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Empty(t, resp.Components)
}

func TestHealthHandler_Readiness_AllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := NewHealthHandler("dev", NewChecker("redis", ok), NewChecker("minio", ok))

	w := serve(t, "/readyz", h.Readiness)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
	assert.Equal(t, "healthy", resp.Components["minio"].Status)
}

func TestHealthHandler_Readiness_OneUnhealthy(t *testing.T) {
	h := NewHealthHandler("dev",
		NewChecker("redis", func(context.Context) error { return nil }),
		NewChecker("minio", func(context.Context) error { return errors.New("bucket missing") }),
	)

	w := serve(t, "/readyz", h.Readiness)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["minio"].Status)
	assert.Equal(t, "bucket missing", resp.Components["minio"].Error)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
}

func TestHealthHandler_Readiness_CheckerSeesDeadline(t *testing.T) {
	var hasDeadline bool
	h := NewHealthHandler("dev", NewChecker("kegg", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}))

	serve(t, "/readyz", h.Readiness)

	assert.True(t, hasDeadline)
}
