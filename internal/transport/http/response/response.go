package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	FlashCookie = "flash"

	// ContextFlashKey holds a flash set earlier in the same request, before the
	// cookie round trip.
	ContextFlashKey = "flash"
)

// HTML renders the named template. A pending flash message is added to data
// under "Flash" and consumed.
func HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Flash"]; !ok {
		if msg := takeFlash(c); msg != "" {
			data["Flash"] = msg
		}
	}
	c.HTML(status, name, data)
}

// Redirect sends a 303 to location, carrying flash to the next page when non-empty.
func Redirect(c *gin.Context, location, flash string) {
	if flash != "" {
		SetFlash(c, flash)
	}
	c.Redirect(http.StatusSeeOther, location)
}

func SetFlash(c *gin.Context, message string) {
	c.Set(ContextFlashKey, message)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, message, 60, "/", "", false, true)
}

func takeFlash(c *gin.Context) string {
	if msg := c.GetString(ContextFlashKey); msg != "" {
		return msg
	}
	msg, err := c.Cookie(FlashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, "", -1, "/", "", false, true)
	return msg
}
