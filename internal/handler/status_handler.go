package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sumiong13/kbm-corner-api/internal/service"
	"github.com/Sumiong13/kbm-corner-api/pkg/database"
	"github.com/Sumiong13/kbm-corner-api/pkg/response"
)

// StatusHandler serves health, readiness and the admin metrics snapshot.
type StatusHandler struct {
	metrics *service.MetricsService
	probe   *database.Probe
}

// NewStatusHandler creates a new handler.
func NewStatusHandler(metrics *service.MetricsService, probe *database.Probe) *StatusHandler {
	return &StatusHandler{metrics: metrics, probe: probe}
}

// Health godoc
// @Summary Liveness check
// @Tags Status
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *StatusHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"}, nil)
}

// Ready godoc
// @Summary Readiness check
// @Description Reports whether the database currently accepts writes
// @Tags Status
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *StatusHandler) Ready(c *gin.Context) {
	if h.probe != nil && !h.probe.Ready(c.Request.Context()) {
		response.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "degraded"}, nil)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ready"}, nil)
}

// Metrics godoc
// @Summary Admin metrics snapshot
// @Description Aggregated request, cache and stale-read counters for the admin dashboard
// @Tags Status
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /status/metrics [get]
func (h *StatusHandler) Metrics(c *gin.Context) {
	ready := h.probe == nil || h.probe.Ready(c.Request.Context())
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(ready), nil)
}

// Prometheus exposes the Prometheus scrape endpoint.
func (h *StatusHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
