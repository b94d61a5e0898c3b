package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/service"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// DirectoryHandler wires HTTP endpoints to the event and class directory.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates a club event with a check-in session code, generating one when omitted
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.EventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /events [post]
func (h *DirectoryHandler) CreateEvent(c *gin.Context) {
	var req service.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}

	event, err := h.service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}

// ListEvents godoc
// @Summary List events
// @Tags Directory
// @Produce json
// @Param active query bool false "Only events currently open for check-in"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *DirectoryHandler) ListEvents(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	events, err := h.service.ListEvents(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, events, nil)
}

// SetEventActive godoc
// @Summary Open or close an event for check-in
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body object true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/active [post]
func (h *DirectoryHandler) SetEventActive(c *gin.Context) {
	var payload struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.SetEventActive(c.Request.Context(), c.Param("id"), payload.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CreateClass godoc
// @Summary Create a class
// @Description Creates a recurring class with its own check-in session code
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body service.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /classes [post]
func (h *DirectoryHandler) CreateClass(c *gin.Context) {
	var req service.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}

	class, err := h.service.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, class)
}

// ListClasses godoc
// @Summary List classes
// @Tags Directory
// @Produce json
// @Param active query bool false "Only classes currently open for check-in"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *DirectoryHandler) ListClasses(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))

	classes, err := h.service.ListClasses(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, classes, nil)
}
