package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
)

type collegeStore interface {
	List(ctx context.Context, filter models.CollegeFilter) ([]models.College, error)
	FindByID(ctx context.Context, id string) (*models.College, error)
}

// CollegeService serves the college reference data used to populate the
// upload form and browse filters.
type CollegeService struct {
	repo   collegeStore
	logger *zap.Logger
}

// NewCollegeService constructs a CollegeService.
func NewCollegeService(repo collegeStore, logger *zap.Logger) *CollegeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{repo: repo, logger: logger}
}

// List returns colleges ordered by name, optionally narrowed by a
// case-insensitive name search or an exact location.
func (s *CollegeService) List(ctx context.Context, filter models.CollegeFilter) ([]models.College, error) {
	colleges, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return colleges, nil
}

// Get returns a single college by id.
func (s *CollegeService) Get(ctx context.Context, id string) (*models.College, error) {
	college, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	return college, nil
}
