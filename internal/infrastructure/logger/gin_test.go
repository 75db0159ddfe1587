package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupRequestLoggerRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	return router, recorded
}

func TestRequestLogger(t *testing.T) {
	t.Run("logs a successful request at info", func(t *testing.T) {
		router, recorded := setupRequestLoggerRouter(t)
		router.GET("/api/v1/funds", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/funds?status=live", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, recorded.Len())
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		assert.Equal(t, "http request", entry.Message)

		fields := entry.ContextMap()
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/api/v1/funds", fields["path"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "status=live", fields["query"])
	})

	t.Run("carries the calling principal when one is set", func(t *testing.T) {
		router, recorded := setupRequestLoggerRouter(t)
		principal := uuid.New()
		router.POST("/api/v1/funds", func(c *gin.Context) {
			c.Set("principal_id", principal)
			c.JSON(http.StatusCreated, gin.H{"success": true})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/funds", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, principal.String(), recorded.All()[0].ContextMap()["principal_id"])
	})

	t.Run("client errors are logged at warn", func(t *testing.T) {
		router, recorded := setupRequestLoggerRouter(t)
		router.GET("/api/v1/funds/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"success": false})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/funds/"+uuid.NewString(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
	})

	t.Run("server errors are logged at error", func(t *testing.T) {
		router, recorded := setupRequestLoggerRouter(t)
		router.GET("/boom", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
	})

	t.Run("health probes are not logged", func(t *testing.T) {
		router, recorded := setupRequestLoggerRouter(t)
		router.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, recorded.Len())
	})

	t.Run("stores a request-scoped logger in the gin context", func(t *testing.T) {
		router, _ := setupRequestLoggerRouter(t)
		var scoped *zap.Logger
		router.GET("/ping", func(c *gin.Context) {
			v, ok := c.Get("logger")
			require.True(t, ok)
			scoped = v.(*zap.Logger)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)

		require.NotNil(t, scoped)
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("accessor swap went sideways")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	assert.Contains(t, w.Body.String(), `"success":false`)

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, "panic recovered", entry.Message)
	assert.Equal(t, "/panic", entry.ContextMap()["path"])
}
