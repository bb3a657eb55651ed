package models

import "time"

// ResourceStatus captures the review lifecycle of an uploaded resource.
// PENDING is the only non-terminal state: a resource moves to APPROVED or
// REJECTED exactly once and never leaves a terminal state.
type ResourceStatus string

const (
	ResourceStatusPending  ResourceStatus = "PENDING"
	ResourceStatusApproved ResourceStatus = "APPROVED"
	ResourceStatusRejected ResourceStatus = "REJECTED"
)

// FileTypeUnknown labels uploads whose original filename carried no extension.
const FileTypeUnknown = "UNKNOWN"

// Resource is an uploaded academic document awaiting or past review.
// Only APPROVED resources are publicly listable.
type Resource struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	OwnerID     string         `db:"owner_id" json:"owner_id"`
	CollegeID   *string        `db:"college_id" json:"college_id,omitempty"`
	Department  string         `db:"department" json:"department"`
	Year        string         `db:"year" json:"year"`
	Type        string         `db:"type" json:"type"`
	FilePath    string         `db:"file_path" json:"-"`
	FileType    string         `db:"file_type" json:"file_type"`
	FileSizeMB  float64        `db:"file_size_mb" json:"file_size_mb"`
	Status      ResourceStatus `db:"status" json:"status"`
	ReviewedBy  *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ResourceFilter constrains resource listing queries at the persistence layer.
// Equality fields match canonical stored values exactly.
type ResourceFilter struct {
	Status     ResourceStatus
	OwnerID    string
	Year       string
	Department string
	Type       string
}

// ResourceStats aggregates counts for the admin dashboard.
type ResourceStats struct {
	TotalUsers     int            `json:"total_users"`
	TotalResources int            `json:"total_resources"`
	ByStatus       map[string]int `json:"by_status"`
	ByType         map[string]int `json:"by_type"`
}

// StatusCount is a single aggregation row.
type StatusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}
