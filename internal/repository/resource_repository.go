package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyhub/studyhub-api/internal/models"
)

const resourceColumns = `id, title, description, owner_id, college_id, department, year, type, file_path, file_type, file_size_mb, status, reviewed_by, reviewed_at, created_at, updated_at`

// ResourceRepository manages persistence for uploaded resources.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs a ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create inserts a new resource record. Callers set the status; the upload
// workflow always inserts PENDING.
func (r *ResourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = now
	}
	resource.UpdatedAt = now
	const query = `INSERT INTO resources (id, title, description, owner_id, college_id, department, year, type, file_path, file_type, file_size_mb, status, created_at, updated_at)
        VALUES (:id, :title, :description, :owner_id, :college_id, :department, :year, :type, :file_path, :file_type, :file_size_mb, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resource); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// FindByID fetches a resource by identifier.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE id = $1 LIMIT 1`, resourceColumns)
	var resource models.Resource
	if err := r.db.GetContext(ctx, &resource, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	return &resource, nil
}

// List returns resources matching the filter. Approved listings come back
// newest first; the pending review queue is served oldest first so the
// longest-waiting submission is reviewed next.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Year != "" {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}

	order := "created_at DESC"
	if filter.Status == models.ResourceStatusPending {
		order = "created_at ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM resources WHERE %s ORDER BY %s",
		resourceColumns, strings.Join(conditions, " AND "), order)

	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, query, args...); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// UpdateStatus transitions a pending resource into a terminal state. The
// WHERE clause doubles as a compare-and-set: when two reviews race, only the
// first to observe PENDING succeeds and the loser gets sql.ErrNoRows.
func (r *ResourceRepository) UpdateStatus(ctx context.Context, id string, status models.ResourceStatus, reviewerID string, reviewedAt time.Time) error {
	const query = `UPDATE resources SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewerID, reviewedAt, models.ResourceStatusPending)
	if err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resource update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates resource counts per status.
func (r *ResourceRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status AS key, COUNT(*) AS count FROM resources GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count resources by status: %w", err)
	}
	return counts, nil
}

// CountByType aggregates resource counts per type.
func (r *ResourceRepository) CountByType(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT type AS key, COUNT(*) AS count FROM resources GROUP BY type`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count resources by type: %w", err)
	}
	return counts, nil
}
