package repository

import (
	"context"
	"errors"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
)

// VerificationRepository defines the interface for verification application data access
type VerificationRepository interface {
	Create(ctx context.Context, app *models.ClanVerificationApplication) error
	GetByID(ctx context.Context, id uint) (*models.ClanVerificationApplication, error)
	// LatestApplication returns the clan's most recent application, nil when none exists.
	LatestApplication(ctx context.Context, clanID uint) (*models.ClanVerificationApplication, error)
	Transition(ctx context.Context, id uint, from, to models.VerificationStatus, reviewerID uint) error
	ListSubmitted(ctx context.Context, limit, offset int) ([]models.ClanVerificationApplication, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, app *models.ClanVerificationApplication) error {
	return translate(r.db.WithContext(ctx).Create(app).Error)
}

func (r *verificationRepository) GetByID(ctx context.Context, id uint) (*models.ClanVerificationApplication, error) {
	var app models.ClanVerificationApplication
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, notFoundOr(err, "Verification application", id)
	}
	return &app, nil
}

func (r *verificationRepository) LatestApplication(ctx context.Context, clanID uint) (*models.ClanVerificationApplication, error) {
	var app models.ClanVerificationApplication
	err := r.db.WithContext(ctx).
		Where("clan_id = ?", clanID).
		Order("created_at DESC, id DESC").
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (r *verificationRepository) Transition(ctx context.Context, id uint, from, to models.VerificationStatus, reviewerID uint) error {
	return guarded(r.db.WithContext(ctx).Model(&models.ClanVerificationApplication{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":              to,
			"reviewed_by_user_id": reviewerID,
			"updated_at":          time.Now(),
		}))
}

func (r *verificationRepository) ListSubmitted(ctx context.Context, limit, offset int) ([]models.ClanVerificationApplication, error) {
	var apps []models.ClanVerificationApplication
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.VerificationStatusSubmitted).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&apps).Error; err != nil {
		return nil, translate(err)
	}
	return apps, nil
}
