package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/models"
	"github.com/Sumiong13/kbm-corner-api/internal/service"
	appErrors "github.com/Sumiong13/kbm-corner-api/pkg/errors"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ExportMembers godoc
// @Summary Export the member directory as CSV
// @Tags Reports
// @Produce json
// @Param role query string false "Filter by role"
// @Param level query int false "Filter by membership level"
// @Param expired query bool false "Filter by expiry state"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/members [post]
func (h *ReportHandler) ExportMembers(c *gin.Context) {
	filter := models.ProfileFilter{Search: c.Query("search")}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if level := c.Query("level"); level != "" {
		if n, err := strconv.Atoi(level); err == nil {
			filter.Level = &n
		}
	}
	if expired := c.Query("expired"); expired != "" {
		if b, err := strconv.ParseBool(expired); err == nil {
			filter.Expired = &b
		}
	}

	result, err := h.service.ExportMembers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ExportPayments godoc
// @Summary Export payments for a period as CSV
// @Description Includes per-method totals as trailing summary rows
// @Tags Reports
// @Produce json
// @Param from query string true "Period start (RFC 3339)"
// @Param to query string true "Period end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/payments [post]
func (h *ReportHandler) ExportPayments(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be an RFC 3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be an RFC 3339 timestamp"))
		return
	}
	if !to.After(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be after from"))
		return
	}

	result, err := h.service.ExportPayments(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ExportAttendance godoc
// @Summary Export check-in records as CSV
// @Tags Reports
// @Produce json
// @Param user_id query string false "Filter by member"
// @Param event_id query string false "Filter by event"
// @Param class_name query string false "Filter by class"
// @Param type query string false "EVENT or CLASS"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/attendance [post]
func (h *ReportHandler) ExportAttendance(c *gin.Context) {
	filter := models.AttendanceFilter{
		UserID:    c.Query("user_id"),
		EventID:   c.Query("event_id"),
		ClassName: c.Query("class_name"),
	}
	if kind := c.Query("type"); kind != "" {
		t := models.AttendanceType(kind)
		filter.Type = &t
	}

	result, err := h.service.ExportAttendance(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ExportGrades godoc
// @Summary Export grade records as CSV
// @Tags Reports
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param tutor_id query string false "Filter by tutor"
// @Param level query int false "Filter by level"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/grades [post]
func (h *ReportHandler) ExportGrades(c *gin.Context) {
	filter := models.GradeFilter{
		StudentID: c.Query("student_id"),
		TutorID:   c.Query("tutor_id"),
	}
	if level := c.Query("level"); level != "" {
		if n, err := strconv.Atoi(level); err == nil {
			filter.Level = &n
		}
	}

	result, err := h.service.ExportGrades(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ExportProgressions godoc
// @Summary Export level review decisions as CSV
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/progressions [post]
func (h *ReportHandler) ExportProgressions(c *gin.Context) {
	result, err := h.service.ExportProgressions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated export
// @Description Streams the CSV file referenced by a signed token; no authentication required
// @Tags Reports
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	c.Header("Content-Type", "text/csv")
	c.File(download.File.Name())
}
