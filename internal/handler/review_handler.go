package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyhub/studyhub-api/internal/dto"
	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
	"github.com/studyhub/studyhub-api/pkg/response"
)

type reviewService interface {
	PendingQueue(ctx context.Context, constraints filter.Constraints, actor *models.JWTClaims) ([]models.Resource, error)
	Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error)
	Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error)
}

// ReviewHandler exposes the admin moderation endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Pending godoc
// @Summary List pending submissions awaiting review
// @Tags Admin
// @Produce json
// @Param year query string false "Exact academic year"
// @Param department query string false "Exact department"
// @Param type query string false "Exact resource type"
// @Param search query string false "Free text over title and description"
// @Success 200 {object} response.Envelope
// @Router /admin/resources/pending [get]
func (h *ReviewHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	var query dto.ResourceFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filter parameters"))
		return
	}
	queue, err := h.service.PendingQueue(c.Request.Context(), filter.Constraints{
		Year:       strings.TrimSpace(query.Year),
		Department: strings.TrimSpace(query.Department),
		Type:       strings.TrimSpace(query.Type),
		Text:       strings.TrimSpace(query.Search),
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewResourceResponseList(queue), nil)
}

// Approve godoc
// @Summary Approve a pending submission
// @Tags Admin
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Router /admin/resources/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	resource, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewResourceResponse(*resource), nil, map[string]interface{}{
		"message": "resource approved and published",
	})
}

// Reject godoc
// @Summary Reject a pending submission
// @Tags Admin
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Router /admin/resources/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	resource, err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewResourceResponse(*resource), nil, map[string]interface{}{
		"message": "resource rejected",
	})
}
