package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func request(r http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"https://coach.example"}))

	w := request(r, http.MethodGet, "https://coach.example")
	assert.Equal(t, "https://coach.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = request(r, http.MethodGet, "https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	wild := newRouter(CORS([]string{"*"}))
	w = request(wild, http.MethodGet, "https://anyone.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(CORS(nil))
	r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := request(r, http.MethodOptions, "https://coach.example")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecureHeaders(t *testing.T) {
	w := request(newRouter(Secure()), http.MethodGet, "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRouter(RateLimiter(ctx, 2, time.Hour))
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "").Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRouter(RateLimiter(context.Background(), 0, time.Minute))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "").Code)
	}
}
