package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/studyhub/studyhub-api/internal/models"
)

// CollegeRepository reads college reference data.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository constructs a CollegeRepository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// List returns colleges matching the filter, ordered by name.
func (r *CollegeRepository) List(ctx context.Context, filter models.CollegeFilter) ([]models.College, error) {
	base := "SELECT id, name, location, departments, created_at FROM colleges"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location = $%d", len(args)+1))
		args = append(args, filter.Location)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY name ASC", base, strings.Join(conditions, " AND "))

	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, query, args...); err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return colleges, nil
}

// FindByID fetches a college by identifier.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	const query = `SELECT id, name, location, departments, created_at FROM colleges WHERE id = $1 LIMIT 1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find college by id: %w", err)
	}
	return &college, nil
}

// FindByName resolves a college by its exact name. Used by the upload
// workflow's soft college reference; a miss is reported as sql.ErrNoRows.
func (r *CollegeRepository) FindByName(ctx context.Context, name string) (*models.College, error) {
	const query = `SELECT id, name, location, departments, created_at FROM colleges WHERE name = $1 LIMIT 1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find college by name: %w", err)
	}
	return &college, nil
}
