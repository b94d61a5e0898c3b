package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/internal/service"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// ProgressionHandler wires HTTP endpoints to the progression service.
type ProgressionHandler struct {
	service *service.ProgressionService
	reports *service.ReportService
}

// NewProgressionHandler creates a new handler.
func NewProgressionHandler(svc *service.ProgressionService, reports *service.ReportService) *ProgressionHandler {
	return &ProgressionHandler{service: svc, reports: reports}
}

// Verify godoc
// @Summary Decide a level-up review
// @Description Tutor approves or rejects a student's promotion to the next level
// @Tags Progression
// @Accept json
// @Produce json
// @Param payload body service.LevelVerificationRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /progression/verify [post]
func (h *ProgressionHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.LevelVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	result, err := h.service.VerifyLevelUp(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Get a student's progression history
// @Tags Progression
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /progression/students/{id} [get]
func (h *ProgressionHandler) History(c *gin.Context) {
	verifications, certificates, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"verifications": verifications,
		"certificates":  certificates,
	}, nil)
}

// MyHistory godoc
// @Summary Get own progression history
// @Tags Progression
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progression/me [get]
func (h *ProgressionHandler) MyHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	verifications, certificates, err := h.service.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"verifications": verifications,
		"certificates":  certificates,
	}, nil)
}

// Certificate godoc
// @Summary Download a certificate PDF
// @Description Students may download their own certificates; staff may download any
// @Tags Progression
// @Produce application/pdf
// @Param id path string true "Certificate ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progression/certificates/{id} [get]
func (h *ProgressionHandler) Certificate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cert, err := h.service.GetCertificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims.Role == models.RoleStudent && cert.StudentID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another member"))
		return
	}

	pdf, filename, err := h.reports.RenderCertificate(c.Request.Context(), cert.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
