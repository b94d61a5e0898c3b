package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/service"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// GradeHandler wires HTTP endpoints to the grading service.
type GradeHandler struct {
	service *service.GradingService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(svc *service.GradingService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Create godoc
// @Summary Record a grade
// @Description Tutor records an assessment score for a student at the student's current level
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.GradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	grade, err := h.service.GradeStudent(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, grade)
}

// StudentGrades godoc
// @Summary Get a student's transcript
// @Description Grades with per-level summaries; served from the fallback snapshot when the database is down
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Param level query int false "Filter by level"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /grades/students/{id} [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	var level *int
	if raw := c.Query("level"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			level = &n
		}
	}

	report, stale, err := h.service.StudentGrades(c.Request.Context(), c.Param("id"), level)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil, staleMeta(stale))
}

// MyGrades godoc
// @Summary Get own transcript
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /grades/me [get]
func (h *GradeHandler) MyGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	report, stale, err := h.service.StudentGrades(c.Request.Context(), claims.UserID, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil, staleMeta(stale))
}
