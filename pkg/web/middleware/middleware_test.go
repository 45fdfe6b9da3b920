package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/metrics/sliding"
	"github.com/lk2023060901/xdooria-lobby/pkg/prometheus"
	"github.com/lk2023060901/xdooria-lobby/pkg/security"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT(t *testing.T) *security.JWTManager {
	t.Helper()
	m, err := security.NewJWTManager(&security.JWTConfig{SecretKey: "test-secret"})
	require.NoError(t, err)
	return m
}

func authEngine(t *testing.T, jwt *security.JWTManager) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.Use(Auth(&AuthConfig{
		JWTManager: jwt,
		CookieName: "auth-token",
		SkipPaths:  []string{"/health"},
		Logger:     logger.NewNoop(),
	}))
	r.GET("/me", func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		require.True(t, ok)
		assert.NotNil(t, GetLogger(c, nil))
		c.JSON(http.StatusOK, p)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuth(t *testing.T) {
	jwt := newJWT(t)
	r := authEngine(t, jwt)
	token, err := jwt.GenerateToken("user-42", "u42@example.com")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":"user-42","email":"u42@example.com"}`, rec.Body.String())
	})

	t.Run("cookie fallback", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "auth-token", Value: token})
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":40002`)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("skip path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	rl, err := NewRateLimiter(&RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             2,
		PerIP:             true,
		SkipPaths:         []string{"/health"},
	}, logger.NewNoop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rl.Close() })

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_PerUserKeysAreIndependent(t *testing.T) {
	rl, err := NewRateLimiter(&RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
		PerUser:           true,
	}, logger.NewNoop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rl.Close() })

	assert.True(t, rl.Allow("user:a"))
	assert.False(t, rl.Allow("user:a"))
	assert.True(t, rl.Allow("user:b"))
}

func TestRateLimit_Disabled(t *testing.T) {
	rl, err := NewRateLimiter(&RateLimitConfig{Enabled: false, Burst: 1, RequestsPerSecond: 0.001}, logger.NewNoop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rl.Close() })

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	client, err := prometheus.New(&prometheus.Config{Namespace: "test"})
	require.NoError(t, err)
	m, err := metrics.NewHTTPMetrics(client)
	require.NoError(t, err)
	window, err := sliding.NewWindow(&sliding.WindowConfig{Enabled: true, WindowSize: time.Minute, BucketCount: 60})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Metrics(m, window))
	r.GET("/vault/:key", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vault/abc", nil))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.RequestsTotal.WithLabelValues("/vault/:key", "GET", "200")))
	assert.Equal(t, int64(1), window.GetStats().SuccessCount)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(&CORSConfig{AllowOrigins: []string{"https://play.example.com"}}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://play.example.com")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://play.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
