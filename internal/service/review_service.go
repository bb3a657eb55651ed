package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
)

type reviewResourceStore interface {
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
	UpdateStatus(ctx context.Context, id string, status models.ResourceStatus, reviewerID string, reviewedAt time.Time) error
}

// ReviewService drives the admin moderation workflow: listing the pending
// queue and moving submissions into a terminal state exactly once.
type ReviewService struct {
	repo    reviewResourceStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(repo reviewResourceStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// PendingQueue lists pending submissions oldest first, narrowed by the same
// filter constraints the public listing supports.
func (s *ReviewService) PendingQueue(ctx context.Context, constraints filter.Constraints, actor *models.JWTClaims) ([]models.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	pending, err := s.repo.List(ctx, models.ResourceFilter{Status: models.ResourceStatusPending})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending resources")
	}
	return filter.Apply(pending, constraints), nil
}

// Approve publishes a pending resource. The status update is a
// compare-and-set against PENDING, so a submission that was already reviewed
// (including by a concurrent admin) reports an invalid transition.
func (s *ReviewService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error) {
	return s.review(ctx, id, models.ResourceStatusApproved, actor)
}

// Reject declines a pending resource. The stored file is retained so the
// record keeps pointing at real bytes; cleanup is an operational concern.
func (s *ReviewService) Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error) {
	return s.review(ctx, id, models.ResourceStatusRejected, actor)
}

func (s *ReviewService) review(ctx context.Context, id string, status models.ResourceStatus, actor *models.JWTClaims) (*models.Resource, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if resource.Status != models.ResourceStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
	}

	reviewedAt := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, actor.UserID, reviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against another reviewer.
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource status")
	}

	resource.Status = status
	resource.ReviewedBy = &actor.UserID
	resource.ReviewedAt = &reviewedAt
	resource.UpdatedAt = reviewedAt

	if status == models.ResourceStatusApproved {
		if err := s.cache.Invalidate(ctx, ListingCacheKey); err != nil {
			s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordReview(string(status))
	}

	s.logger.Info("resource reviewed",
		zap.String("resource_id", id),
		zap.String("reviewer_id", actor.UserID),
		zap.String("status", string(status)))
	return resource, nil
}

func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}
