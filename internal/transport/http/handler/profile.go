package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"story-endings/internal/app"
	"story-endings/internal/logging"
	"story-endings/internal/transport/http/middleware"
	"story-endings/internal/transport/http/response"
)

type ProfileHandler struct {
	endingService *app.EndingService
	logger        logging.Logger
}

func NewProfileHandler(endingService *app.EndingService, logger logging.Logger) *ProfileHandler {
	return &ProfileHandler{endingService: endingService, logger: logger}
}

// Show lists the session user's endings. Any other username in the path
// redirects to the caller's own profile.
func (h *ProfileHandler) Show(c *gin.Context) {
	username := middleware.CurrentIdentity(c).Username
	if app.NormalizeUsername(c.Param("username")) != username {
		response.Redirect(c, "/profile/"+username, "")
		return
	}

	endings, err := h.endingService.ListByAuthor(c.Request.Context(), username)
	if err != nil {
		renderServerError(c, h.logger, "list profile endings", err)
		return
	}

	render(c, http.StatusOK, "profile.html", gin.H{
		"Title":    username,
		"Username": username,
		"Endings":  endings,
	})
}
