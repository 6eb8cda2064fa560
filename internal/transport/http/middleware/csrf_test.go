package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCSRF(t *testing.T) {
	gin.SetMode(gin.TestMode)

	config := CSRFConfig{
		AllowedOrigins: []string{"https://endings.example.com"},
	}

	tests := []struct {
		name       string
		method     string
		origin     string
		referer    string
		wantStatus int
	}{
		{
			name:       "GET passes without headers",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST from same host passes",
			method:     http.MethodPost,
			origin:     "http://example.com",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST from configured origin passes",
			method:     http.MethodPost,
			origin:     "HTTPS://ENDINGS.EXAMPLE.COM/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST from foreign origin blocked",
			method:     http.MethodPost,
			origin:     "https://evil.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "POST with same host referer passes",
			method:     http.MethodPost,
			referer:    "http://example.com/add_ending",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST with foreign referer blocked",
			method:     http.MethodPost,
			referer:    "https://evil.com/form",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "POST with null origin falls back to referer",
			method:     http.MethodPost,
			origin:     "null",
			referer:    "http://example.com/login",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST without headers blocked",
			method:     http.MethodPost,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CSRF(config))
			router.Handle(tt.method, "/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "http://example.com/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRejectCrossSite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/delete", RejectCrossSite(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for site, want := range map[string]int{
		"":            http.StatusOK,
		"same-origin": http.StatusOK,
		"none":        http.StatusOK,
		"cross-site":  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/delete", nil)
		if site != "" {
			req.Header.Set("Sec-Fetch-Site", site)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, site)
	}
}
