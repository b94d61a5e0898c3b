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

// PaymentHandler wires HTTP endpoints to the membership service.
type PaymentHandler struct {
	service *service.MembershipService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.MembershipService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Record godoc
// @Summary Record a payment for a member
// @Description Committee/admin desk flow: records a fee payment and extends the member's expiry by four months
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	receipt, err := h.service.RecordPayment(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, receipt)
}

// Pay godoc
// @Summary Pay own membership fee
// @Description Self-service flow: the caller pays their own fee regardless of the user_id in the payload
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /payments/self [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	req.UserID = claims.UserID

	receipt, err := h.service.ProcessPayment(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, receipt)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param user_id query string false "Filter by member"
// @Param method query string false "Filter by payment method"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		UserID:    c.Query("user_id"),
		SortOrder: c.Query("sort_order"),
	}
	if method := c.Query("method"); method != "" {
		m := models.PaymentMethod(method)
		filter.Method = &m
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	payments, total, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// MyPayments godoc
// @Summary List own payments
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments/me [get]
func (h *PaymentHandler) MyPayments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.PaymentFilter{UserID: claims.UserID}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	payments, total, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payments, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Reset godoc
// @Summary Reset all memberships
// @Description Start-of-term reset: expires every non-admin membership
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /memberships/reset [post]
func (h *PaymentHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	affected, err := h.service.ResetAllMemberships(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"affected": affected}, nil)
}
