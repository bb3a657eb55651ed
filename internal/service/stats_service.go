package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub/studyhub-api/internal/models"
	appErrors "github.com/studyhub/studyhub-api/pkg/errors"
	"github.com/studyhub/studyhub-api/pkg/export"
)

type statsResourceCounter interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountByType(ctx context.Context) ([]models.StatusCount, error)
}

type statsUserCounter interface {
	CountAll(ctx context.Context) (int, error)
}

// StatsExport bundles a rendered export document.
type StatsExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// StatsService aggregates counts for the admin dashboard and renders
// downloadable exports.
type StatsService struct {
	resources statsResourceCounter
	users     statsUserCounter
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(resources statsResourceCounter, users statsUserCounter, metrics *MetricsService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		resources: resources,
		users:     users,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Overview returns aggregate counts for the admin dashboard.
func (s *StatsService) Overview(ctx context.Context, actor *models.JWTClaims) (*models.ResourceStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	byStatus, err := s.resources.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count resources by status")
	}
	byType, err := s.resources.CountByType(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count resources by type")
	}
	totalUsers, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}

	stats := &models.ResourceStats{
		TotalUsers: totalUsers,
		ByStatus:   make(map[string]int, len(byStatus)),
		ByType:     make(map[string]int, len(byType)),
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
		stats.TotalResources += row.Count
	}
	for _, row := range byType {
		stats.ByType[row.Key] = row.Count
	}
	return stats, nil
}

// SystemMetrics exposes the runtime metrics snapshot to the admin dashboard.
func (s *StatsService) SystemMetrics(actor *models.JWTClaims) (*SystemMetricsSnapshot, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	snapshot := s.metrics.Snapshot()
	return &snapshot, nil
}

// Export renders the overview as a downloadable CSV or PDF document.
func (s *StatsService) Export(ctx context.Context, format string, actor *models.JWTClaims) (*StatsExport, error) {
	stats, err := s.Overview(ctx, actor)
	if err != nil {
		return nil, err
	}

	dataset := statsDataset(stats)
	stamp := time.Now().UTC().Format("20060102")

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &StatsExport{
			Filename:    fmt.Sprintf("studyhub_stats_%s.csv", stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "StudyHub Resource Statistics")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &StatsExport{
			Filename:    fmt.Sprintf("studyhub_stats_%s.pdf", stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func statsDataset(stats *models.ResourceStats) export.Dataset {
	rows := []map[string]string{
		{"Metric": "Total users", "Value": strconv.Itoa(stats.TotalUsers)},
		{"Metric": "Total resources", "Value": strconv.Itoa(stats.TotalResources)},
	}
	for _, status := range []string{
		string(models.ResourceStatusPending),
		string(models.ResourceStatusApproved),
		string(models.ResourceStatusRejected),
	} {
		rows = append(rows, map[string]string{
			"Metric": fmt.Sprintf("Resources %s", strings.ToLower(status)),
			"Value":  strconv.Itoa(stats.ByStatus[status]),
		})
	}
	typeKeys := make([]string, 0, len(stats.ByType))
	for key := range stats.ByType {
		typeKeys = append(typeKeys, key)
	}
	sort.Strings(typeKeys)
	for _, key := range typeKeys {
		rows = append(rows, map[string]string{
			"Metric": fmt.Sprintf("Type %s", key),
			"Value":  strconv.Itoa(stats.ByType[key]),
		})
	}
	return export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}
}
