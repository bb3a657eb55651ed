package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub-api/internal/dto"
	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
	"github.com/studyhub/studyhub-api/pkg/storage"
)

type resourceRepoStub struct {
	items      map[string]*models.Resource
	order      []string
	createErr  error
	lastFilter models.ResourceFilter
}

func newResourceRepoStub() *resourceRepoStub {
	return &resourceRepoStub{items: make(map[string]*models.Resource)}
}

func (r *resourceRepoStub) add(resource *models.Resource) {
	r.items[resource.ID] = resource
	r.order = append(r.order, resource.ID)
}

func (r *resourceRepoStub) Create(ctx context.Context, resource *models.Resource) error {
	if r.createErr != nil {
		return r.createErr
	}
	if resource.ID == "" {
		resource.ID = fmt.Sprintf("res-%d", len(r.items)+1)
	}
	copy := *resource
	r.add(&copy)
	return nil
}

func (r *resourceRepoStub) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	if item, ok := r.items[id]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *resourceRepoStub) List(ctx context.Context, f models.ResourceFilter) ([]models.Resource, error) {
	r.lastFilter = f
	result := make([]models.Resource, 0, len(r.items))
	for _, id := range r.order {
		item := r.items[id]
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && item.OwnerID != f.OwnerID {
			continue
		}
		result = append(result, *item)
	}
	return result, nil
}

func (r *resourceRepoStub) UpdateStatus(ctx context.Context, id string, status models.ResourceStatus, reviewerID string, reviewedAt time.Time) error {
	item, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	if item.Status != models.ResourceStatusPending {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedBy = &reviewerID
	item.ReviewedAt = &reviewedAt
	return nil
}

type uploadStorageStub struct {
	saved   map[string][]byte
	files   map[string]string
	deleted []string
	saveErr error
}

func newUploadStorageStub() *uploadStorageStub {
	return &uploadStorageStub{
		saved: make(map[string][]byte),
		files: make(map[string]string),
	}
}

func (s *uploadStorageStub) SaveStream(filename string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[filename] = data
	path := filepath.Join(os.TempDir(), "resource-test-"+strings.ReplaceAll(filename, "/", "_"))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	s.files[filename] = path
	return filename, nil
}

func (s *uploadStorageStub) Open(filename string) (*os.File, error) {
	path, ok := s.files[filename]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return os.Open(path)
}

func (s *uploadStorageStub) Delete(filename string) error {
	if path, ok := s.files[filename]; ok {
		_ = os.Remove(path)
		delete(s.files, filename)
	}
	delete(s.saved, filename)
	s.deleted = append(s.deleted, filename)
	return nil
}

type collegeResolverStub struct {
	byName map[string]*models.College
	err    error
}

func (c *collegeResolverStub) FindByName(ctx context.Context, name string) (*models.College, error) {
	if c.err != nil {
		return nil, c.err
	}
	if college, ok := c.byName[name]; ok {
		return college, nil
	}
	return nil, sql.ErrNoRows
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin}
}

func validUploadMeta() dto.UploadResourceRequest {
	return dto.UploadResourceRequest{
		Title:       "Data Structures Notes",
		Description: "Complete semester notes with examples",
		College:     "Tech University",
		Department:  "Computer Science",
		Year:        "2024",
		Type:        "Course Notes",
	}
}

func uploadOf(content string, filename string) ResourceUpload {
	return ResourceUpload{
		Filename: filename,
		Size:     int64(len(content)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader([]byte(content)),
	}
}

func newTestResourceService(repo *resourceRepoStub, store *uploadStorageStub, colleges *collegeResolverStub) *ResourceService {
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	var resolver collegeResolver
	if colleges != nil {
		resolver = colleges
	}
	return NewResourceService(repo, resolver, store, signer, nil, nil, nil, ResourceServiceConfig{
		MaxFileSize: 1024,
		APIPrefix:   "/api/v1",
	})
}

func TestResourceServiceUploadCreatesPending(t *testing.T) {
	repo := newResourceRepoStub()
	store := newUploadStorageStub()
	colleges := &collegeResolverStub{byName: map[string]*models.College{
		"Tech University": {ID: "college-1", Name: "Tech University"},
	}}
	svc := newTestResourceService(repo, store, colleges)

	resource, err := svc.Upload(context.Background(), validUploadMeta(), uploadOf("pdf-bytes", "notes.pdf"), studentClaims("user-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ResourceStatusPending, resource.Status)
	assert.Equal(t, "user-1", resource.OwnerID)
	assert.Equal(t, "PDF", resource.FileType)
	require.NotNil(t, resource.CollegeID)
	assert.Equal(t, "college-1", *resource.CollegeID)
	assert.True(t, strings.HasPrefix(resource.FilePath, "user-1/"), "uploads are namespaced per owner, got %q", resource.FilePath)
	assert.Len(t, store.saved, 1)
}

func TestResourceServiceUploadValidation(t *testing.T) {
	repo := newResourceRepoStub()
	store := newUploadStorageStub()
	svc := newTestResourceService(repo, store, nil)

	cases := []struct {
		name    string
		mutate  func(*dto.UploadResourceRequest)
		message string
	}{
		{"short title", func(m *dto.UploadResourceRequest) { m.Title = "ab" }, "title must be at least 3 characters"},
		{"short description", func(m *dto.UploadResourceRequest) { m.Description = "too short" }, "description must be at least 10 characters"},
		{"missing college", func(m *dto.UploadResourceRequest) { m.College = "" }, "college is required"},
		{"missing department", func(m *dto.UploadResourceRequest) { m.Department = " " }, "department is required"},
		{"missing year", func(m *dto.UploadResourceRequest) { m.Year = "" }, "year is required"},
		{"missing type", func(m *dto.UploadResourceRequest) { m.Type = "" }, "type is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := validUploadMeta()
			tc.mutate(&meta)
			_, err := svc.Upload(context.Background(), meta, uploadOf("data", "notes.pdf"), studentClaims("user-1"))
			require.Error(t, err)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}

	assert.Empty(t, repo.items, "no record may be created for an invalid submission")
	assert.Empty(t, store.saved, "no file may be stored for an invalid submission")
}

func TestResourceServiceUploadRequiresFile(t *testing.T) {
	svc := newTestResourceService(newResourceRepoStub(), newUploadStorageStub(), nil)

	_, err := svc.Upload(context.Background(), validUploadMeta(), ResourceUpload{}, studentClaims("user-1"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "file is required", appErr.Message)
}

func TestResourceServiceUploadRejectsOversizedFile(t *testing.T) {
	svc := newTestResourceService(newResourceRepoStub(), newUploadStorageStub(), nil)

	big := strings.Repeat("x", 2048)
	_, err := svc.Upload(context.Background(), validUploadMeta(), uploadOf(big, "big.pdf"), studentClaims("user-1"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResourceServiceUploadCleansUpOnInsertFailure(t *testing.T) {
	repo := newResourceRepoStub()
	repo.createErr = fmt.Errorf("insert failed")
	store := newUploadStorageStub()
	svc := newTestResourceService(repo, store, nil)

	_, err := svc.Upload(context.Background(), validUploadMeta(), uploadOf("data", "notes.pdf"), studentClaims("user-1"))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUploadFailed.Code, appErr.Code)
	assert.Len(t, store.deleted, 1, "stored file must be removed when the insert fails")
}

func TestResourceServiceUploadUnknownCollegeLeavesSoftReferenceEmpty(t *testing.T) {
	repo := newResourceRepoStub()
	store := newUploadStorageStub()
	svc := newTestResourceService(repo, store, &collegeResolverStub{byName: map[string]*models.College{}})

	resource, err := svc.Upload(context.Background(), validUploadMeta(), uploadOf("data", "notes.pdf"), studentClaims("user-1"))
	require.NoError(t, err)
	assert.Nil(t, resource.CollegeID)
	assert.Equal(t, models.ResourceStatusPending, resource.Status)
}

func TestResourceServiceUploadFileWithoutExtension(t *testing.T) {
	svc := newTestResourceService(newResourceRepoStub(), newUploadStorageStub(), nil)

	resource, err := svc.Upload(context.Background(), validUploadMeta(), uploadOf("data", "README"), studentClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeUnknown, resource.FileType)
}

func TestResourceServicePublicListingOnlyApproved(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "1", Title: "Approved Notes", Status: models.ResourceStatusApproved, Department: "Computer Science", Year: "2024"})
	repo.add(&models.Resource{ID: "2", Title: "Pending Notes", Status: models.ResourceStatusPending, Department: "Computer Science", Year: "2024"})
	repo.add(&models.Resource{ID: "3", Title: "Rejected Notes", Status: models.ResourceStatusRejected, Department: "Computer Science", Year: "2024"})
	svc := newTestResourceService(repo, newUploadStorageStub(), nil)

	listing, err := svc.PublicListing(context.Background(), filter.Constraints{})
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "1", listing[0].ID)
}

func TestResourceServicePublicListingAppliesConstraints(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "1", Title: "Algorithms", Status: models.ResourceStatusApproved, Department: "Computer Science", Year: "2024"})
	repo.add(&models.Resource{ID: "2", Title: "Thermodynamics", Status: models.ResourceStatusApproved, Department: "Mechanical", Year: "2024"})
	svc := newTestResourceService(repo, newUploadStorageStub(), nil)

	listing, err := svc.PublicListing(context.Background(), filter.Constraints{Department: "Computer Science"})
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "1", listing[0].ID)
}

func TestResourceServiceGetVisibility(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "approved", OwnerID: "owner-1", Status: models.ResourceStatusApproved})
	repo.add(&models.Resource{ID: "pending", OwnerID: "owner-1", Status: models.ResourceStatusPending})
	svc := newTestResourceService(repo, newUploadStorageStub(), nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "approved", nil)
	require.NoError(t, err, "approved resources are public")

	_, err = svc.Get(ctx, "pending", nil)
	require.ErrorIs(t, err, appErrors.ErrNotFound, "pending resources are hidden from anonymous visitors")

	_, err = svc.Get(ctx, "pending", studentClaims("someone-else"))
	require.ErrorIs(t, err, appErrors.ErrNotFound, "pending resources are hidden from other students")

	_, err = svc.Get(ctx, "pending", studentClaims("owner-1"))
	require.NoError(t, err, "owners can see their own pending submissions")

	_, err = svc.Get(ctx, "pending", adminClaims("admin-1"))
	require.NoError(t, err, "admins can see pending submissions")
}

func TestResourceServiceDownloadRoundtrip(t *testing.T) {
	repo := newResourceRepoStub()
	store := newUploadStorageStub()
	svc := newTestResourceService(repo, store, nil)
	ctx := context.Background()

	resource, err := svc.Upload(ctx, validUploadMeta(), uploadOf("file-content", "notes.pdf"), studentClaims("user-1"))
	require.NoError(t, err)

	url, err := svc.GetDownloadURL(ctx, resource.ID, studentClaims("user-1"))
	require.NoError(t, err)
	require.Contains(t, url, "/api/v1/resources/"+resource.ID+"/download?token=")

	token := url[strings.Index(url, "token=")+len("token="):]
	download, err := svc.Download(ctx, resource.ID, token)
	require.NoError(t, err)
	defer download.File.Close()

	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, "file-content", string(data))
	assert.Equal(t, int64(len("file-content")), download.SizeBytes)
}

func TestResourceServiceDownloadRejectsForeignToken(t *testing.T) {
	repo := newResourceRepoStub()
	store := newUploadStorageStub()
	svc := newTestResourceService(repo, store, nil)
	ctx := context.Background()

	first, err := svc.Upload(ctx, validUploadMeta(), uploadOf("first", "a.pdf"), studentClaims("user-1"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, validUploadMeta(), uploadOf("second", "b.pdf"), studentClaims("user-1"))
	require.NoError(t, err)

	url, err := svc.GetDownloadURL(ctx, first.ID, studentClaims("user-1"))
	require.NoError(t, err)
	token := url[strings.Index(url, "token=")+len("token="):]

	_, err = svc.Download(ctx, second.ID, token)
	require.Error(t, err, "a token minted for one resource must not unlock another")

	_, err = svc.Download(ctx, first.ID, "garbage-token")
	require.Error(t, err)
}

type failingSignerStub struct{}

func (failingSignerStub) Generate(id, relPath string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("secret not configured")
}

func (failingSignerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, errors.New("secret not configured")
}

func TestResourceServiceGetDownloadURLSignerFailure(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "res-1", OwnerID: "user-1", FilePath: "user-1/notes.pdf", Status: models.ResourceStatusApproved})
	svc := NewResourceService(repo, nil, newUploadStorageStub(), failingSignerStub{}, nil, nil, nil, ResourceServiceConfig{APIPrefix: "/api/v1"})

	_, err := svc.GetDownloadURL(context.Background(), "res-1", nil)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestResourceServiceListMine(t *testing.T) {
	repo := newResourceRepoStub()
	repo.add(&models.Resource{ID: "1", OwnerID: "user-1", Status: models.ResourceStatusPending})
	repo.add(&models.Resource{ID: "2", OwnerID: "user-2", Status: models.ResourceStatusApproved})
	repo.add(&models.Resource{ID: "3", OwnerID: "user-1", Status: models.ResourceStatusRejected})
	svc := newTestResourceService(repo, newUploadStorageStub(), nil)

	mine, err := svc.ListMine(context.Background(), studentClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)

	_, err = svc.ListMine(context.Background(), nil)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
