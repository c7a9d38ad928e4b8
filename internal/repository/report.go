package repository

import (
	"context"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
)

// ReportRepository defines the interface for report data access
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	// Dismiss resolves an open report. ErrStale when it was already resolved.
	Dismiss(ctx context.Context, id, actorID uint, at time.Time) error
	ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return translate(r.db.WithContext(ctx).Create(report).Error)
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, notFoundOr(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) Dismiss(ctx context.Context, id, actorID uint, at time.Time) error {
	return guarded(r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{
			"resolved":            true,
			"resolved_by_user_id": actorID,
			"resolved_at":         at,
			"updated_at":          at,
		}))
}

func (r *reportRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error) {
	var reports []models.Report
	if err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, translate(err)
	}
	return reports, nil
}
