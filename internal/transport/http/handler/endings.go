package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-endings/internal/app"
	"story-endings/internal/logging"
	"story-endings/internal/model"
	"story-endings/internal/transport/http/middleware"
	"story-endings/internal/transport/http/response"
)

type EndingHandler struct {
	endingService *app.EndingService
	metrics       *middleware.Metrics
	logger        logging.Logger
}

type EndingForm struct {
	GenreName         string `form:"genre_name" binding:"required,max=64"`
	TypeName          string `form:"type_name" binding:"required,max=64"`
	EndingName        string `form:"ending_name" binding:"required"`
	EndingDescription string `form:"ending_description" binding:"required"`
}

func (f EndingForm) input() app.EndingInput {
	return app.EndingInput{
		GenreName:         f.GenreName,
		TypeName:          f.TypeName,
		EndingName:        f.EndingName,
		EndingDescription: f.EndingDescription,
	}
}

type RateForm struct {
	Score int `form:"score" binding:"required,min=1,max=5"`
}

const missingFieldsFlash = "Please fill in genre, type, name and description"

func NewEndingHandler(endingService *app.EndingService, metrics *middleware.Metrics, logger logging.Logger) *EndingHandler {
	return &EndingHandler{
		endingService: endingService,
		metrics:       metrics,
		logger:        logger,
	}
}

func (h *EndingHandler) List(c *gin.Context) {
	highlights, err := h.endingService.Highlights(c.Request.Context())
	if err != nil {
		renderServerError(c, h.logger, "load highlights", err)
		return
	}
	render(c, http.StatusOK, "endings.html", gin.H{
		"Title":    "Endings",
		"Latest":   highlights.Latest,
		"TopRated": highlights.TopRated,
	})
}

func (h *EndingHandler) Detail(c *gin.Context) {
	ending, err := h.endingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrEndingNotFound) {
			renderNotFound(c, "That ending does not exist.")
			return
		}
		renderServerError(c, h.logger, "get ending", err)
		return
	}

	identity := middleware.CurrentIdentity(c)
	myScore := 0
	if identity.Authenticated() {
		myScore, err = h.endingService.ScoreOf(c.Request.Context(), ending.ID, identity.Username)
		if err != nil {
			renderServerError(c, h.logger, "get rating", err)
			return
		}
	}

	render(c, http.StatusOK, "ending_detail.html", gin.H{
		"Title":   ending.EndingName,
		"Ending":  ending,
		"IsOwner": ending.OwnedBy(identity.Username),
		"MyScore": myScore,
		"Scores":  []int{1, 2, 3, 4, 5},
	})
}

func (h *EndingHandler) AddForm(c *gin.Context) {
	h.renderForm(c, "add_ending.html", "Add Ending", &model.Ending{})
}

func (h *EndingHandler) Add(c *gin.Context) {
	var form EndingForm
	if err := c.ShouldBind(&form); err != nil {
		response.Redirect(c, "/add_ending", missingFieldsFlash)
		return
	}

	username := middleware.CurrentIdentity(c).Username
	if _, err := h.endingService.Create(c.Request.Context(), form.input(), username); err != nil {
		if isClientError(err) {
			response.Redirect(c, "/add_ending", validationMessage(err))
			return
		}
		renderServerError(c, h.logger, "create ending", err)
		return
	}

	h.metrics.RecordWrite(model.ActionCreated)
	response.Redirect(c, "/", "Ending Successfully Added")
}

func (h *EndingHandler) EditForm(c *gin.Context) {
	ending, err := h.endingService.GetForEdit(c.Request.Context(), c.Param("id"), middleware.CurrentIdentity(c).Username)
	if err != nil {
		h.handleLookupError(c, "load ending for edit", err)
		return
	}
	h.renderForm(c, "edit_ending.html", "Edit Ending", ending)
}

func (h *EndingHandler) Edit(c *gin.Context) {
	id := c.Param("id")
	var form EndingForm
	if err := c.ShouldBind(&form); err != nil {
		response.Redirect(c, "/edit_ending/"+id, missingFieldsFlash)
		return
	}

	username := middleware.CurrentIdentity(c).Username
	ending, err := h.endingService.Replace(c.Request.Context(), id, form.input(), username)
	if err != nil {
		if isClientError(err) {
			response.Redirect(c, "/edit_ending/"+id, validationMessage(err))
			return
		}
		h.handleLookupError(c, "replace ending", err)
		return
	}

	h.metrics.RecordWrite(model.ActionUpdated)
	response.Redirect(c, "/ending/"+ending.ID, "Ending Successfully Updated")
}

// Delete serves both GET and POST. Unknown ids still land on the list page.
func (h *EndingHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.endingService.Delete(c.Request.Context(), id, middleware.CurrentIdentity(c).Username); err != nil {
		h.handleLookupError(c, "delete ending", err)
		return
	}

	h.metrics.RecordWrite(model.ActionDeleted)
	response.Redirect(c, "/", "Ending Successfully Deleted")
}

func (h *EndingHandler) Rate(c *gin.Context) {
	id := c.Param("id")
	var form RateForm
	if err := c.ShouldBind(&form); err != nil {
		response.Redirect(c, "/ending/"+id, "Pick a score from 1 to 5")
		return
	}

	_, err := h.endingService.Rate(c.Request.Context(), id, middleware.CurrentIdentity(c).Username, form.Score)
	if err != nil {
		if isClientError(err) {
			response.Redirect(c, "/ending/"+id, validationMessage(err))
			return
		}
		h.handleLookupError(c, "rate ending", err)
		return
	}

	h.metrics.RecordWrite(model.ActionRated)
	response.Redirect(c, "/ending/"+id, "Thanks for rating")
}

func (h *EndingHandler) renderForm(c *gin.Context, page, title string, selected *model.Ending) {
	ctx := c.Request.Context()
	genres, err := h.endingService.ListGenres(ctx)
	if err != nil {
		renderServerError(c, h.logger, "list genres", err)
		return
	}
	types, err := h.endingService.ListTypes(ctx)
	if err != nil {
		renderServerError(c, h.logger, "list types", err)
		return
	}

	render(c, http.StatusOK, page, gin.H{
		"Title":    title,
		"Genres":   genres,
		"Types":    types,
		"Selected": selected,
	})
}

func (h *EndingHandler) handleLookupError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, app.ErrEndingNotFound):
		renderNotFound(c, "That ending does not exist.")
	case errors.Is(err, app.ErrForbidden):
		response.Redirect(c, "/ending/"+c.Param("id"), forbiddenFlash)
	default:
		renderServerError(c, h.logger, op, err)
	}
}
