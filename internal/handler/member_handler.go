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

// MemberHandler wires HTTP endpoints to the member service.
type MemberHandler struct {
	service *service.MemberService
}

// NewMemberHandler creates a new handler.
func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{service: svc}
}

// List godoc
// @Summary List members
// @Description List member profiles with filtering and pagination
// @Tags Members
// @Produce json
// @Param role query string false "Filter by role"
// @Param level query int false "Filter by membership level"
// @Param expired query bool false "Filter by expiry state"
// @Param search query string false "Search email or name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /members [get]
func (h *MemberHandler) List(c *gin.Context) {
	filter := models.ProfileFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
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
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	members, total, err := h.service.ListMembers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, members, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get one member
// @Description Returns a member profile; served from the fallback snapshot when the database is down
// @Tags Members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	profile, stale, err := h.service.GetMember(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil, staleMeta(stale))
}

// Verify godoc
// @Summary Decide a pending account
// @Description Approve or reject a pending committee/tutor account
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Member ID"
// @Param payload body object true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /members/{id}/verify [post]
func (h *MemberHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	profile, err := h.service.VerifyAccount(c.Request.Context(), claims.UserID, c.Param("id"), payload.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// AssignClass godoc
// @Summary Assign a tutor to a class
// @Tags Members
// @Accept json
// @Produce json
// @Param id path string true "Tutor ID"
// @Param payload body object true "Class assignment"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /members/{id}/class [post]
func (h *MemberHandler) AssignClass(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		ClassID string `json:"class_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "class_id required"))
		return
	}

	if err := h.service.AssignClass(c.Request.Context(), claims.UserID, c.Param("id"), payload.ClassID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
