package middleware

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string]string

func (s stubResolver) Resolve(_ context.Context, token string) (string, bool, error) {
	if token == "outage" {
		return "", false, errors.New("store unavailable")
	}
	username, ok := s[token]
	return username, ok, nil
}

var testCookie = SessionCookie{Name: "session", TTL: time.Hour}

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("error.html").Parse("something went wrong")))
	router.Use(Session(stubResolver{"good": "bob"}, testCookie))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c).Username)
	})
	router.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "secret")
	})
	return router
}

func serve(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSession_ResolvesIdentity(t *testing.T) {
	router := newSessionRouter()

	w := serve(router, "/whoami", "good")
	assert.Equal(t, "bob", w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	w = serve(router, "/whoami", "")
	assert.Equal(t, "", w.Body.String())
}

func TestSession_ClearsUnresolvableCookie(t *testing.T) {
	w := serve(newSessionRouter(), "/whoami", "forged")
	assert.Equal(t, "", w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSession_StoreOutageKeepsCookie(t *testing.T) {
	w := serve(newSessionRouter(), "/private", "outage")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "something went wrong", w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestRequireAuth(t *testing.T) {
	router := newSessionRouter()

	w := serve(router, "/private", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = serve(router, "/private", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret", w.Body.String())
}

func TestSessionCookie_SetIsHttpOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	testCookie.Set(c, "tok")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}
