package repository

import (
	"context"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClanProfileUpdate carries the mutable public profile of a clan. Nil fields are left unchanged.
type ClanProfileUpdate struct {
	Description       *string
	BannerURL         *string
	DiscordInviteLink *string
	Visibility        *models.ClanVisibility
}

// ClanRepository defines the interface for clan data access
type ClanRepository interface {
	Create(ctx context.Context, clan *models.Clan) error
	GetByID(ctx context.Context, id uint) (*models.Clan, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Clan, error)
	List(ctx context.Context, limit, offset int, includeHidden bool) ([]models.Clan, error)
	UpdateProfile(ctx context.Context, id uint, update ClanProfileUpdate) error
	SetBanned(ctx context.Context, id uint, banned bool) error
	// SetApplicationStatus moves the clan to status when its current status is one of from.
	SetApplicationStatus(ctx context.Context, id uint, from []models.ApplicationStatus, to models.ApplicationStatus) error
	AdjustMemberCount(ctx context.Context, id uint, delta int) error
	// CompareAndSwapOwner reassigns ownership only while oldOwner still owns the clan.
	CompareAndSwapOwner(ctx context.Context, id, oldOwner, newOwner uint) error
}

type clanRepository struct {
	db *gorm.DB
}

// NewClanRepository creates a new clan repository
func NewClanRepository(db *gorm.DB) ClanRepository {
	return &clanRepository{db: db}
}

func (r *clanRepository) Create(ctx context.Context, clan *models.Clan) error {
	err := translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(clan).Error)
	if models.HasCode(err, models.CodeConflict) {
		return models.NewConflictError("", "A clan with this name already exists")
	}
	return err
}

func (r *clanRepository) GetByID(ctx context.Context, id uint) (*models.Clan, error) {
	var clan models.Clan
	if err := r.db.WithContext(ctx).First(&clan, id).Error; err != nil {
		return nil, notFoundOr(err, "Clan", id)
	}
	return &clan, nil
}

func (r *clanRepository) GetForUpdate(ctx context.Context, id uint) (*models.Clan, error) {
	var clan models.Clan
	if err := forUpdate(r.db.WithContext(ctx)).First(&clan, id).Error; err != nil {
		return nil, notFoundOr(err, "Clan", id)
	}
	return &clan, nil
}

func (r *clanRepository) List(ctx context.Context, limit, offset int, includeHidden bool) ([]models.Clan, error) {
	var clans []models.Clan
	query := r.db.WithContext(ctx).Order("member_count DESC, id ASC").Limit(limit).Offset(offset)
	if !includeHidden {
		query = query.Where("visibility = ? AND banned = ?", models.ClanVisibilityVisible, false)
	}
	if err := query.Find(&clans).Error; err != nil {
		return nil, translate(err)
	}
	return clans, nil
}

func (r *clanRepository) UpdateProfile(ctx context.Context, id uint, update ClanProfileUpdate) error {
	fields := map[string]interface{}{"updated_at": time.Now()}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.BannerURL != nil {
		fields["banner_url"] = *update.BannerURL
	}
	if update.DiscordInviteLink != nil {
		fields["discord_invite_link"] = *update.DiscordInviteLink
	}
	if update.Visibility != nil {
		fields["visibility"] = *update.Visibility
	}
	return guarded(r.db.WithContext(ctx).Model(&models.Clan{}).Where("id = ?", id).Updates(fields))
}

func (r *clanRepository) SetBanned(ctx context.Context, id uint, banned bool) error {
	return guarded(r.db.WithContext(ctx).Model(&models.Clan{}).
		Where("id = ? AND banned = ?", id, !banned).
		Update("banned", banned))
}

func (r *clanRepository) SetApplicationStatus(ctx context.Context, id uint, from []models.ApplicationStatus, to models.ApplicationStatus) error {
	return guarded(r.db.WithContext(ctx).Model(&models.Clan{}).
		Where("id = ? AND application_status IN ?", id, from).
		Update("application_status", to))
}

func (r *clanRepository) AdjustMemberCount(ctx context.Context, id uint, delta int) error {
	return guarded(r.db.WithContext(ctx).Model(&models.Clan{}).
		Where("id = ? AND member_count + ? >= 0", id, delta).
		Update("member_count", gorm.Expr("member_count + ?", delta)))
}

func (r *clanRepository) CompareAndSwapOwner(ctx context.Context, id, oldOwner, newOwner uint) error {
	return guarded(r.db.WithContext(ctx).Model(&models.Clan{}).
		Where("id = ? AND owner_user_id = ?", id, oldOwner).
		Update("owner_user_id", newOwner))
}
