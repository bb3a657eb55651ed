package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
)

type cacheRepoStub struct {
	deleted []string
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (c *cacheRepoStub) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func newTestReviewService(repo *resourceRepoStub, cacheRepo *cacheRepoStub) *ReviewService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	return NewReviewService(repo, cache, nil, nil)
}

func TestReviewServicePendingQueueRequiresAdmin(t *testing.T) {
	svc := newTestReviewService(newResourceRepoStub(), nil)

	_, err := svc.PendingQueue(context.Background(), filter.Constraints{}, nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.PendingQueue(context.Background(), filter.Constraints{}, studentClaims("user-1"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestReviewServicePendingQueueFilters(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "1", Title: "Algorithms", Status: models.ResourceStatusPending, Department: "Computer Science"})
	repo.add(&models.Resource{ID: "2", Title: "Statics", Status: models.ResourceStatusPending, Department: "Mechanical"})
	repo.add(&models.Resource{ID: "3", Title: "Published", Status: models.ResourceStatusApproved, Department: "Computer Science"})
	svc := newTestReviewService(repo, nil)

	queue, err := svc.PendingQueue(context.Background(), filter.Constraints{Department: "Computer Science"}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "1", queue[0].ID)
}

func TestReviewServiceApprove(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "res-1", Status: models.ResourceStatusPending})
	cacheRepo := &cacheRepoStub{}
	svc := newTestReviewService(repo, cacheRepo)

	resource, err := svc.Approve(context.Background(), "res-1", adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusApproved, resource.Status)
	require.NotNil(t, resource.ReviewedBy)
	assert.Equal(t, "admin-1", *resource.ReviewedBy)
	assert.NotNil(t, resource.ReviewedAt)
	assert.Contains(t, cacheRepo.deleted, ListingCacheKey, "approving must invalidate the public listing cache")
}

func TestReviewServiceReject(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "res-1", Status: models.ResourceStatusPending})
	cacheRepo := &cacheRepoStub{}
	svc := newTestReviewService(repo, cacheRepo)

	resource, err := svc.Reject(context.Background(), "res-1", adminClaims("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ResourceStatusRejected, resource.Status)
	assert.Empty(t, cacheRepo.deleted, "rejecting leaves the public listing untouched")
}

func TestReviewServiceDoubleReviewReportsInvalidTransition(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "res-1", Status: models.ResourceStatusPending})
	svc := newTestReviewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Approve(ctx, "res-1", adminClaims("admin-1"))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, "res-1", adminClaims("admin-2"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestReviewServiceReviewMissingResource(t *testing.T) {
	svc := newTestReviewService(newResourceRepoStub(), nil)

	_, err := svc.Approve(context.Background(), "missing", adminClaims("admin-1"))
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

// racingRepoStub reports the resource as still pending on read while the
// stored row was already reviewed, mimicking a concurrent reviewer winning
// between the load and the status update.
type racingRepoStub struct {
	*resourceRepoStub
}

func (r racingRepoStub) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	resource, err := r.resourceRepoStub.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resource.Status = models.ResourceStatusPending
	return resource, nil
}

func TestReviewServiceLostRaceReportsInvalidTransition(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "res-1", Status: models.ResourceStatusApproved})
	svc := NewReviewService(racingRepoStub{repo}, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "res-1", adminClaims("admin-2"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}
