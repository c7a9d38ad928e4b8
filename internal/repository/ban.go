package repository

import (
	"context"
	"errors"

	"clanhub/internal/models"

	"gorm.io/gorm"
)

// BanRepository defines the interface for ban record data access.
// The Find* methods return nil, nil when the subject is not banned.
type BanRepository interface {
	CreateUserBan(ctx context.Context, ban *models.UserBan) error
	GetUserBan(ctx context.Context, id uint) (*models.UserBan, error)
	FindUserBan(ctx context.Context, userID uint) (*models.UserBan, error)
	DeleteUserBan(ctx context.Context, id uint) error
	ListUserBans(ctx context.Context, limit, offset int) ([]models.UserBan, error)

	CreateClanBan(ctx context.Context, ban *models.ClanBan) error
	GetClanBan(ctx context.Context, id uint) (*models.ClanBan, error)
	FindClanBan(ctx context.Context, clanID uint) (*models.ClanBan, error)
	DeleteClanBan(ctx context.Context, id uint) error
	ListClanBans(ctx context.Context, limit, offset int) ([]models.ClanBan, error)

	CreateMemberBan(ctx context.Context, ban *models.ClanMemberBan) error
	FindMemberBan(ctx context.Context, memberID uint) (*models.ClanMemberBan, error)
	DeleteMemberBan(ctx context.Context, id uint) error
	ListMemberBans(ctx context.Context, clanID uint) ([]models.ClanMemberBan, error)
}

type banRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new ban repository
func NewBanRepository(db *gorm.DB) BanRepository {
	return &banRepository{db: db}
}

// createBan inserts a ban record. A duplicate subject means a concurrent ban won the race.
func (r *banRepository) createBan(ctx context.Context, ban interface{}) error {
	err := translate(r.db.WithContext(ctx).Create(ban).Error)
	if models.HasCode(err, models.CodeConflict) {
		return models.NewConflictError(models.ReasonAlreadyBanned, "Subject is already banned")
	}
	return err
}

func findBan[T any](ctx context.Context, db *gorm.DB, column string, subjectID uint) (*T, error) {
	var ban T
	err := db.WithContext(ctx).Where(column+" = ?", subjectID).First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &ban, nil
}

func listBans[T any](ctx context.Context, db *gorm.DB, limit, offset int) ([]T, error) {
	var bans []T
	if err := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&bans).Error; err != nil {
		return nil, translate(err)
	}
	return bans, nil
}

func (r *banRepository) CreateUserBan(ctx context.Context, ban *models.UserBan) error {
	return r.createBan(ctx, ban)
}

func (r *banRepository) GetUserBan(ctx context.Context, id uint) (*models.UserBan, error) {
	var ban models.UserBan
	if err := r.db.WithContext(ctx).First(&ban, id).Error; err != nil {
		return nil, notFoundOr(err, "User ban", id)
	}
	return &ban, nil
}

func (r *banRepository) FindUserBan(ctx context.Context, userID uint) (*models.UserBan, error) {
	return findBan[models.UserBan](ctx, r.db, "user_id", userID)
}

func (r *banRepository) DeleteUserBan(ctx context.Context, id uint) error {
	return guarded(r.db.WithContext(ctx).Delete(&models.UserBan{}, id))
}

func (r *banRepository) ListUserBans(ctx context.Context, limit, offset int) ([]models.UserBan, error) {
	return listBans[models.UserBan](ctx, r.db, limit, offset)
}

func (r *banRepository) CreateClanBan(ctx context.Context, ban *models.ClanBan) error {
	return r.createBan(ctx, ban)
}

func (r *banRepository) GetClanBan(ctx context.Context, id uint) (*models.ClanBan, error) {
	var ban models.ClanBan
	if err := r.db.WithContext(ctx).First(&ban, id).Error; err != nil {
		return nil, notFoundOr(err, "Clan ban", id)
	}
	return &ban, nil
}

func (r *banRepository) FindClanBan(ctx context.Context, clanID uint) (*models.ClanBan, error) {
	return findBan[models.ClanBan](ctx, r.db, "clan_id", clanID)
}

func (r *banRepository) DeleteClanBan(ctx context.Context, id uint) error {
	return guarded(r.db.WithContext(ctx).Delete(&models.ClanBan{}, id))
}

func (r *banRepository) ListClanBans(ctx context.Context, limit, offset int) ([]models.ClanBan, error) {
	return listBans[models.ClanBan](ctx, r.db, limit, offset)
}

func (r *banRepository) CreateMemberBan(ctx context.Context, ban *models.ClanMemberBan) error {
	return r.createBan(ctx, ban)
}

func (r *banRepository) FindMemberBan(ctx context.Context, memberID uint) (*models.ClanMemberBan, error) {
	return findBan[models.ClanMemberBan](ctx, r.db, "member_id", memberID)
}

func (r *banRepository) DeleteMemberBan(ctx context.Context, id uint) error {
	return guarded(r.db.WithContext(ctx).Delete(&models.ClanMemberBan{}, id))
}

func (r *banRepository) ListMemberBans(ctx context.Context, clanID uint) ([]models.ClanMemberBan, error) {
	var bans []models.ClanMemberBan
	if err := r.db.WithContext(ctx).Where("clan_id = ?", clanID).Order("created_at DESC, id DESC").Find(&bans).Error; err != nil {
		return nil, translate(err)
	}
	return bans, nil
}
