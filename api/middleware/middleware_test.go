package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claimdesk/claimdesk/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func secureRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecretKeyAuthMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return r
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	config.MockConfig(&config.Configuration{
		Server: config.ServerConfig{Secure: true, SecretKey: "top-secret"},
	})
	router := secureRouter()

	tests := []struct {
		name         string
		key          string
		expectedCode int
	}{
		{"valid key", "top-secret", http.StatusOK},
		{"invalid key", "wrong", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.key != "" {
				req.Header.Set(KeyHeader, tt.key)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestRateLimitMiddleware_DisabledByDefault(t *testing.T) {
	conf := &config.Configuration{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(conf))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	}
}
