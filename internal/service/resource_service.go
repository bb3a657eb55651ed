package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub/studyhub-api/internal/dto"
	"github.com/studyhub/studyhub-api/internal/filter"
	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
)

// ListingCacheKey is the single cache key holding the approved listing.
const ListingCacheKey = "resources:approved:v1"

type resourceStore interface {
	Create(ctx context.Context, resource *models.Resource) error
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
}

type collegeResolver interface {
	FindByName(ctx context.Context, name string) (*models.College, error)
}

type resourceFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type resourceSignedURLSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// ResourceUpload carries upload metadata and stream reader.
type ResourceUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// ResourceDownload bundles a file reader with metadata for streaming.
type ResourceDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ResourceServiceConfig holds validation parameters for uploads.
type ResourceServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// ResourceService manages the upload workflow, the public browse listing and
// file downloads. Uploaded resources always start in PENDING and stay out of
// the public listing until approved.
type ResourceService struct {
	repo     resourceStore
	colleges collegeResolver
	storage  resourceFileStorage
	signer   resourceSignedURLSigner
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ResourceServiceConfig
	mimeSet  map[string]struct{}
}

// NewResourceService constructs the service with defaults.
func NewResourceService(repo resourceStore, colleges collegeResolver, storage resourceFileStorage, signer resourceSignedURLSigner, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ResourceServiceConfig) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			"application/zip",
		}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &ResourceService{
		repo:     repo,
		colleges: colleges,
		storage:  storage,
		signer:   signer,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		mimeSet:  mimeSet,
	}
}

// Upload validates the submission, stores the file and inserts the metadata
// record in PENDING status. When the insert fails after the file was written,
// the orphaned file is removed on a best effort basis.
func (s *ResourceService) Upload(ctx context.Context, meta dto.UploadResourceRequest, upload ResourceUpload, actor *models.JWTClaims) (*models.Resource, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateUploadMeta(meta); err != nil {
		s.recordUpload("rejected")
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		s.recordUpload("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		s.recordUpload("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %dMB limit", s.cfg.MaxFileSize/(1024*1024)))
	}
	if upload.MimeType != "" {
		if _, allowed := s.mimeSet[strings.ToLower(upload.MimeType)]; !allowed {
			s.recordUpload("rejected")
			return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
		}
	}

	filename := s.generateFilename(actor.UserID, upload.Filename)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		s.recordUpload("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		s.recordUpload("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to store uploaded file")
	}

	resource := &models.Resource{
		Title:       strings.TrimSpace(meta.Title),
		Description: strings.TrimSpace(meta.Description),
		OwnerID:     actor.UserID,
		CollegeID:   s.resolveCollege(ctx, meta.College),
		Department:  strings.TrimSpace(meta.Department),
		Year:        strings.TrimSpace(meta.Year),
		Type:        strings.TrimSpace(meta.Type),
		FilePath:    path,
		FileType:    fileTypeFromName(upload.Filename),
		FileSizeMB:  roundMB(upload.Size),
		Status:      models.ResourceStatusPending,
	}
	if err := s.repo.Create(ctx, resource); err != nil {
		if cleanupErr := s.storage.Delete(path); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload file", zap.String("path", path), zap.Error(cleanupErr))
		}
		s.recordUpload("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status, "failed to create resource record")
	}

	s.recordUpload("accepted")
	s.logger.Info("resource submitted for review",
		zap.String("resource_id", resource.ID),
		zap.String("owner_id", actor.UserID))
	return resource, nil
}

// PublicListing returns approved resources narrowed by the filter
// constraints. The full approved set is cached; constraints are applied in
// memory so every combination shares one cache entry.
func (s *ResourceService) PublicListing(ctx context.Context, constraints filter.Constraints) ([]models.Resource, error) {
	var approved []models.Resource

	hit, err := s.cache.Get(ctx, ListingCacheKey, &approved)
	if err != nil {
		s.logger.Warn("listing cache lookup failed", zap.Error(err))
	}
	if !hit {
		approved, err = s.repo.List(ctx, models.ResourceFilter{Status: models.ResourceStatusApproved})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
		}
		if err := s.cache.Set(ctx, ListingCacheKey, approved, 0); err != nil {
			s.logger.Warn("listing cache write failed", zap.Error(err))
		}
	}

	return filter.Apply(approved, constraints), nil
}

// Get returns a resource the actor may see. Approved resources are public;
// pending and rejected ones are visible only to their owner and admins.
// Hidden resources are reported as not found rather than forbidden.
func (s *ResourceService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Resource, error) {
	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if resource.Status == models.ResourceStatusApproved {
		return resource, nil
	}
	if actor == nil {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleAdmin || actor.UserID == resource.OwnerID {
		return resource, nil
	}
	return nil, appErrors.ErrNotFound
}

// GetDownloadURL generates a signed URL for downloading the file.
func (s *ResourceService) GetDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	resource, err := s.Get(ctx, id, actor)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(resource.ID, resource.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign download token",
			zap.String("resource_id", resource.ID),
			zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/resources/%s/download?token=%s", base, resource.ID, token), nil
}

// Download validates the signed token and opens the stored file. The token is
// the capability: no session is required, but the token must match both the
// resource id and the stored file path.
func (s *ResourceService) Download(ctx context.Context, id, token string) (*ResourceDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	tokenID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if tokenID != resource.ID || relPath != resource.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open resource file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	return &ResourceDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  contentTypeFor(relPath),
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// ListMine returns every resource owned by the actor regardless of status,
// newest first, so students can track their pending submissions.
func (s *ResourceService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.Resource, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	resources, err := s.repo.List(ctx, models.ResourceFilter{OwnerID: actor.UserID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}
	return resources, nil
}

func (s *ResourceService) validateUploadMeta(meta dto.UploadResourceRequest) error {
	if len(strings.TrimSpace(meta.Title)) < 3 {
		return appErrors.Clone(appErrors.ErrValidation, "title must be at least 3 characters")
	}
	if len(strings.TrimSpace(meta.Description)) < 10 {
		return appErrors.Clone(appErrors.ErrValidation, "description must be at least 10 characters")
	}
	if strings.TrimSpace(meta.College) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "college is required")
	}
	if strings.TrimSpace(meta.Department) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	if strings.TrimSpace(meta.Year) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	if strings.TrimSpace(meta.Type) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "type is required")
	}
	return nil
}

// resolveCollege maps the free-form college name to a stored college id.
// The reference is soft: an unknown name or lookup failure leaves the
// resource without a college rather than failing the upload.
func (s *ResourceService) resolveCollege(ctx context.Context, name string) *string {
	name = strings.TrimSpace(name)
	if name == "" || s.colleges == nil {
		return nil
	}
	college, err := s.colleges.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("college lookup failed", zap.String("college", name), zap.Error(err))
		}
		return nil
	}
	id := college.ID
	return &id
}

func (s *ResourceService) generateFilename(ownerID, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s/%d_%s%s", ownerID, time.Now().Unix(), randomSuffix(), ext)
}

func (s *ResourceService) recordUpload(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordUpload(outcome)
	}
}

func fileTypeFromName(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return models.FileTypeUnknown
	}
	return strings.ToUpper(ext)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func roundMB(sizeBytes int64) float64 {
	mb := float64(sizeBytes) / (1024 * 1024)
	return math.Round(mb*100) / 100
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
