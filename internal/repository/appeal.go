package repository

import (
	"context"
	"errors"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
)

// AppealReview records the reviewer decision applied by Transition.
type AppealReview struct {
	ReviewerID         uint
	AllowAnotherAppeal bool
	Comment            string
	At                 time.Time
}

// AppealRepository defines the interface for ban appeal data access
type AppealRepository interface {
	Create(ctx context.Context, appeal *models.BanAppeal) error
	GetByID(ctx context.Context, id uint) (*models.BanAppeal, error)
	// LatestAppeal returns the most recent appeal of a ban, nil when none exists.
	LatestAppeal(ctx context.Context, kind models.BanKind, banID uint) (*models.BanAppeal, error)
	// Transition moves an appeal whose status is one of from to status to.
	Transition(ctx context.Context, id uint, from []models.AppealStatus, to models.AppealStatus, review AppealReview) error
	// Unblock re-allows appeals on a blocking denied appeal.
	Unblock(ctx context.Context, id, actorID uint) error
	ListActive(ctx context.Context, limit, offset int) ([]models.BanAppeal, error)
}

type appealRepository struct {
	db *gorm.DB
}

// NewAppealRepository creates a new appeal repository
func NewAppealRepository(db *gorm.DB) AppealRepository {
	return &appealRepository{db: db}
}

func (r *appealRepository) Create(ctx context.Context, appeal *models.BanAppeal) error {
	return translate(r.db.WithContext(ctx).Create(appeal).Error)
}

func (r *appealRepository) GetByID(ctx context.Context, id uint) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	if err := r.db.WithContext(ctx).First(&appeal, id).Error; err != nil {
		return nil, notFoundOr(err, "Appeal", id)
	}
	return &appeal, nil
}

func (r *appealRepository) LatestAppeal(ctx context.Context, kind models.BanKind, banID uint) (*models.BanAppeal, error) {
	var appeal models.BanAppeal
	err := r.db.WithContext(ctx).
		Where("ban_kind = ? AND ban_id = ?", kind, banID).
		Order("created_at DESC, id DESC").
		First(&appeal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &appeal, nil
}

func (r *appealRepository) Transition(ctx context.Context, id uint, from []models.AppealStatus, to models.AppealStatus, review AppealReview) error {
	fields := map[string]interface{}{
		"status":               to,
		"allow_another_appeal": review.AllowAnotherAppeal,
		"reviewed_by_user_id":  review.ReviewerID,
		"updated_at":           review.At,
	}
	if review.Comment != "" {
		fields["reviewer_comment"] = review.Comment
	}
	return guarded(r.db.WithContext(ctx).Model(&models.BanAppeal{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields))
}

func (r *appealRepository) Unblock(ctx context.Context, id, actorID uint) error {
	return guarded(r.db.WithContext(ctx).Model(&models.BanAppeal{}).
		Where("id = ? AND status = ? AND allow_another_appeal = ?", id, models.AppealStatusDenied, false).
		Updates(map[string]interface{}{
			"allow_another_appeal": true,
			"reviewed_by_user_id":  actorID,
			"updated_at":           time.Now(),
		}))
}

func (r *appealRepository) ListActive(ctx context.Context, limit, offset int) ([]models.BanAppeal, error) {
	var appeals []models.BanAppeal
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []models.AppealStatus{models.AppealStatusSubmitted, models.AppealStatusInReview}).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&appeals).Error; err != nil {
		return nil, translate(err)
	}
	return appeals, nil
}
