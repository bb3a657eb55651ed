package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyhub/studyhub-api/internal/models"
	"github.com/studyhub/studyhub-api/pkg/response"
)

type collegeService interface {
	List(ctx context.Context, filter models.CollegeFilter) ([]models.College, error)
	Get(ctx context.Context, id string) (*models.College, error)
}

// CollegeHandler serves college reference data.
type CollegeHandler struct {
	service collegeService
}

// NewCollegeHandler constructs the handler.
func NewCollegeHandler(service collegeService) *CollegeHandler {
	return &CollegeHandler{service: service}
}

// List godoc
// @Summary List colleges
// @Tags Colleges
// @Produce json
// @Param search query string false "Case-insensitive name search"
// @Param location query string false "Exact location filter"
// @Success 200 {object} response.Envelope
// @Router /colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	filter := models.CollegeFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Location: strings.TrimSpace(c.Query("location")),
	}
	colleges, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colleges, nil)
}

// Get godoc
// @Summary Get a college by id
// @Tags Colleges
// @Produce json
// @Param id path string true "College ID"
// @Success 200 {object} response.Envelope
// @Router /colleges/{id} [get]
func (h *CollegeHandler) Get(c *gin.Context) {
	college, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}
