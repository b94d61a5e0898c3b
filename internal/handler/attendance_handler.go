package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/internal/service"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance service.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// CheckIn godoc
// @Summary Check in with a session code
// @Description Resolves the scanned QR session code to an event or class and records the check-in
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body object true "Session code"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		SessionCode string `json:"session_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "session_code required"))
		return
	}

	result, err := h.service.CheckIn(c.Request.Context(), claims.UserID, payload.SessionCode)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param user_id query string false "Filter by member"
// @Param event_id query string false "Filter by event"
// @Param class_name query string false "Filter by class"
// @Param type query string false "EVENT or CLASS"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		UserID:    c.Query("user_id"),
		EventID:   c.Query("event_id"),
		ClassName: c.Query("class_name"),
	}
	if kind := c.Query("type"); kind != "" {
		t := models.AttendanceType(kind)
		filter.Type = &t
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.service.ListAttendance(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// MyAttendance godoc
// @Summary List own attendance
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/me [get]
func (h *AttendanceHandler) MyAttendance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AttendanceFilter{UserID: claims.UserID}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	records, total, err := h.service.ListAttendance(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
