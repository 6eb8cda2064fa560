package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"story-endings/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

// Identity is the per-request view of who is logged in.
type Identity struct {
	Username string
}

func (i Identity) Authenticated() bool {
	return i.Username != ""
}

// CurrentIdentity returns the identity set by Session, or an anonymous one.
func CurrentIdentity(c *gin.Context) Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}
	}
	identity, _ := v.(Identity)
	return identity
}

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, bool, error)
}

// SessionCookie describes the HttpOnly cookie that carries the session token.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (s SessionCookie) Set(c *gin.Context, token string) {
	s.write(c, token, int(s.TTL.Seconds()))
}

func (s SessionCookie) Clear(c *gin.Context) {
	s.write(c, "", -1)
}

func (s SessionCookie) Read(c *gin.Context) string {
	token, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return token
}

func (s SessionCookie) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, value, maxAge, "/", "", s.Secure, true)
}

// Session resolves the session cookie into an Identity on every request.
// A cookie that no longer resolves is cleared. When the session stores cannot
// be reached the cookie is kept and the request ends with the error page.
func Session(resolver SessionResolver, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity{}
		if token := cookie.Read(c); token != "" {
			username, ok, err := resolver.Resolve(c.Request.Context(), token)
			switch {
			case err != nil:
				_ = c.Error(err)
				response.HTML(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Error"})
				c.Abort()
				return
			case ok:
				identity.Username = username
			default:
				cookie.Clear(c)
			}
		}
		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// RequireAuth sends anonymous visitors to the login page before the handler runs.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).Authenticated() {
			response.Redirect(c, "/login", "Please log in first")
			c.Abort()
			return
		}
		c.Next()
	}
}
