package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-endings/internal/app"
	"story-endings/internal/logging"
	"story-endings/internal/transport/http/middleware"
	"story-endings/internal/transport/http/response"
)

type AuthHandler struct {
	authService    *app.AuthService
	sessionService *app.SessionService
	cookie         middleware.SessionCookie
	logger         logging.Logger
}

type CredentialsForm struct {
	Username string `form:"username" binding:"required,max=64"`
	Password string `form:"password" binding:"required,max=72"`
}

func NewAuthHandler(
	authService *app.AuthService,
	sessionService *app.SessionService,
	cookie middleware.SessionCookie,
	logger logging.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		cookie:         cookie,
		logger:         logger,
	}
}

func (h *AuthHandler) RegisterForm(c *gin.Context) {
	render(c, http.StatusOK, "register.html", gin.H{"Title": "Register"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		response.Redirect(c, "/register", "Username and password are required")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUsernameTaken):
			response.Redirect(c, "/register", "Username already exists")
		case isClientError(err):
			response.Redirect(c, "/register", validationMessage(err))
		default:
			renderServerError(c, h.logger, "register", err)
		}
		return
	}

	if !h.startSession(c, user.Username) {
		return
	}
	h.logger.Info(c.Request.Context(), "user registered", "username", user.Username)
	response.Redirect(c, "/profile/"+user.Username, "Registration Successful!")
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{"Title": "Log In"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		response.Redirect(c, "/login", "Incorrect Username and/or Password")
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), app.LoginInput{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredential) {
			response.Redirect(c, "/login", "Incorrect Username and/or Password")
			return
		}
		renderServerError(c, h.logger, "login", err)
		return
	}

	if !h.startSession(c, user.Username) {
		return
	}
	response.Redirect(c, "/profile/"+user.Username, "Welcome, "+user.Username)
}

// Logout works with or without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessionService.End(c.Request.Context(), h.cookie.Read(c)); err != nil {
		h.logger.Warn(c.Request.Context(), "revoke session failed", "error", err)
	}
	h.cookie.Clear(c)
	response.Redirect(c, "/login", "You have been logged out")
}

func (h *AuthHandler) startSession(c *gin.Context, username string) bool {
	token, err := h.sessionService.Start(username)
	if err != nil {
		renderServerError(c, h.logger, "start session", err)
		return false
	}
	h.cookie.Set(c, token)
	return true
}
