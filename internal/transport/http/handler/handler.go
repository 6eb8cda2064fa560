package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"story-endings/internal/app"
	"story-endings/internal/logging"
	"story-endings/internal/transport/http/middleware"
	"story-endings/internal/transport/http/response"
)

const forbiddenFlash = "You can only change your own endings"

// render adds the logged-in username so every page can build its navigation.
func render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.CurrentIdentity(c).Username
	response.HTML(c, status, name, data)
}

func renderNotFound(c *gin.Context, message string) {
	render(c, http.StatusNotFound, "not_found.html", gin.H{
		"Title":   "Not found",
		"Message": message,
	})
}

// renderServerError is the single exit for store and infrastructure failures.
func renderServerError(c *gin.Context, logger logging.Logger, op string, err error) {
	_ = c.Error(err)
	logger.Error(c.Request.Context(), op+" failed", "path", c.Request.URL.Path, "error", err)
	render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Error"})
}

// validationMessage strips the sentinel prefix so the user sees only the reason.
func validationMessage(err error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, app.ErrInvalidInput.Error()+": "); trimmed != msg {
		msg = trimmed
	}
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func isClientError(err error) bool {
	return errors.Is(err, app.ErrInvalidInput)
}

func NotFound(c *gin.Context) {
	renderNotFound(c, "")
}
