package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhub/studyhub-api/internal/models"
	"github.com/studyhub/studyhub-api/internal/service"
	"github.com/studyhub/studyhub-api/pkg/response"
)

type statsService interface {
	Overview(ctx context.Context, actor *models.JWTClaims) (*models.ResourceStats, error)
	SystemMetrics(actor *models.JWTClaims) (*service.SystemMetricsSnapshot, error)
	Export(ctx context.Context, format string, actor *models.JWTClaims) (*service.StatsExport, error)
}

// StatsHandler exposes the admin dashboard aggregates.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service statsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Overview godoc
// @Summary Aggregate resource and user counts
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *StatsHandler) Overview(c *gin.Context) {
	stats, err := h.service.Overview(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// SystemMetrics godoc
// @Summary Runtime metrics snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats/system [get]
func (h *StatsHandler) SystemMetrics(c *gin.Context) {
	snapshot, err := h.service.SystemMetrics(claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Export godoc
// @Summary Export the stats overview as CSV or PDF
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /admin/stats/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	doc, err := h.service.Export(c.Request.Context(), c.Query("format"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Payload)
}
