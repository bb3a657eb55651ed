package dto

import (
	"time"

	"github.com/studyhub/studyhub-api/internal/models"
)

// UploadResourceRequest carries the multipart form fields accompanying a
// resource file. The college field is the free-form college name typed by
// the student; it is resolved to a stored college on a best effort basis.
type UploadResourceRequest struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	College     string `form:"college"`
	Department  string `form:"department"`
	Year        string `form:"year"`
	Type        string `form:"type"`
}

// ResourceFilterQuery captures listing filters from query parameters.
// Equality filters match exact canonical values; search is free text.
type ResourceFilterQuery struct {
	Year       string `form:"year"`
	Department string `form:"department"`
	Type       string `form:"type"`
	Search     string `form:"search"`
}

// ResourceResponse is the API shape of a resource, optionally enriched with
// a signed download link.
type ResourceResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	CollegeID   *string    `json:"college_id,omitempty"`
	Department  string     `json:"department"`
	Year        string     `json:"year"`
	Type        string     `json:"type"`
	FileType    string     `json:"file_type"`
	FileSizeMB  float64    `json:"file_size_mb"`
	Status      string     `json:"status"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DownloadURL string     `json:"download_url,omitempty"`
}

// NewResourceResponse converts a model to its API representation.
func NewResourceResponse(r models.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		CollegeID:   r.CollegeID,
		Department:  r.Department,
		Year:        r.Year,
		Type:        r.Type,
		FileType:    r.FileType,
		FileSizeMB:  r.FileSizeMB,
		Status:      string(r.Status),
		ReviewedBy:  r.ReviewedBy,
		ReviewedAt:  r.ReviewedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewResourceResponseList converts a slice of models.
func NewResourceResponseList(resources []models.Resource) []ResourceResponse {
	out := make([]ResourceResponse, 0, len(resources))
	for _, r := range resources {
		out = append(out, NewResourceResponse(r))
	}
	return out
}
