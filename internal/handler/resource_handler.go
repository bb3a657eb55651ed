package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyhub/studyhub-api/internal/dto"
	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	"github.com/studyhub/studyhub-api/internal/service"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
	"github.com/studyhub/studyhub-api/pkg/response"
)

type resourceService interface {
	Upload(ctx context.Context, meta dto.UploadResourceRequest, upload service.ResourceUpload, actor *models.JWTClaims) (*models.Resource, error)
	PublicListing(ctx context.Context, constraints filter.Constraints) ([]models.Resource, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error)
	GetDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, error)
	Download(ctx context.Context, id, token string) (*service.ResourceDownload, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.Resource, error)
}

// ResourceHandler manages resource HTTP endpoints.
type ResourceHandler struct {
	service resourceService
}

// NewResourceHandler constructs the handler.
func NewResourceHandler(service resourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// List godoc
// @Summary Browse approved resources
// @Tags Resources
// @Produce json
// @Param year query string false "Exact academic year"
// @Param department query string false "Exact department"
// @Param type query string false "Exact resource type"
// @Param search query string false "Free text over title and description"
// @Success 200 {object} response.Envelope
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	var query dto.ResourceFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filter parameters"))
		return
	}
	resources, err := h.service.PublicListing(c.Request.Context(), filter.Constraints{
		Year:       strings.TrimSpace(query.Year),
		Department: strings.TrimSpace(query.Department),
		Type:       strings.TrimSpace(query.Type),
		Text:       strings.TrimSpace(query.Search),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewResourceResponseList(resources), nil)
}

// Get godoc
// @Summary Get a resource with its download link
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Router /resources/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	resource, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := dto.NewResourceResponse(*resource)
	if url, err := h.service.GetDownloadURL(c.Request.Context(), resource.ID, claims); err == nil {
		payload.DownloadURL = url
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Upload godoc
// @Summary Submit a resource for review
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param college formData string true "College name"
// @Param department formData string true "Department"
// @Param year formData string true "Academic year"
// @Param type formData string true "Resource type"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Router /resources [post]
func (h *ResourceHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UploadResourceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	upload := service.ResourceUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	}
	resource, err := h.service.Upload(c.Request.Context(), req, upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.NewResourceResponse(*resource), nil, map[string]interface{}{
		"message": "resource submitted and awaiting admin approval",
	})
}

// Download godoc
// @Summary Download a resource file via signed token
// @Tags Resources
// @Produce octet-stream
// @Param id path string true "Resource ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /resources/{id}/download [get]
func (h *ResourceHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// ListMine godoc
// @Summary List the caller's own submissions
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /resources/mine [get]
func (h *ResourceHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resources, err := h.service.ListMine(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewResourceResponseList(resources), nil)
}
