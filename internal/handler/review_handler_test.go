package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub-api/internal/dto"
	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
)

type reviewServiceStub struct {
	pending    []models.Resource
	approveErr error
	rejectErr  error
	reviewed   []string
}

func (s *reviewServiceStub) PendingQueue(ctx context.Context, constraints filter.Constraints, actor *models.JWTClaims) ([]models.Resource, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.pending, nil
}

func (s *reviewServiceStub) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	s.reviewed = append(s.reviewed, id)
	return &models.Resource{ID: id, Status: models.ResourceStatusApproved}, nil
}

func (s *reviewServiceStub) Reject(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error) {
	if s.rejectErr != nil {
		return nil, s.rejectErr
	}
	s.reviewed = append(s.reviewed, id)
	return &models.Resource{ID: id, Status: models.ResourceStatusRejected}, nil
}

func adminContext() gin.HandlerFunc {
	return withClaims(&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

func TestReviewHandlerPending(t *testing.T) {
	stub := &reviewServiceStub{pending: []models.Resource{
		{ID: "1", Status: models.ResourceStatusPending},
		{ID: "2", Status: models.ResourceStatusPending},
	}}
	h := NewReviewHandler(stub)

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	_, router := gin.CreateTestContext(recorder)
	router.GET("/admin/resources/pending", adminContext(), h.Pending)
	req := httptest.NewRequest(http.MethodGet, "/admin/resources/pending", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var envelope struct {
		Data []dto.ResourceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
}

func TestReviewHandlerApprove(t *testing.T) {
	stub := &reviewServiceStub{}
	h := NewReviewHandler(stub)

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	_, router := gin.CreateTestContext(recorder)
	router.POST("/admin/resources/:id/approve", adminContext(), h.Approve)
	req := httptest.NewRequest(http.MethodPost, "/admin/resources/res-1/approve", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"res-1"}, stub.reviewed)

	var envelope struct {
		Data dto.ResourceResponse   `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.ResourceStatusApproved), envelope.Data.Status)
	assert.Contains(t, envelope.Meta["message"], "approved")
}

func TestReviewHandlerRejectAlreadyReviewed(t *testing.T) {
	stub := &reviewServiceStub{rejectErr: appErrors.ErrInvalidTransition}
	h := NewReviewHandler(stub)

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	_, router := gin.CreateTestContext(recorder)
	router.POST("/admin/resources/:id/reject", adminContext(), h.Reject)
	req := httptest.NewRequest(http.MethodPost, "/admin/resources/res-1/reject", nil)
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INVALID_TRANSITION")
}
