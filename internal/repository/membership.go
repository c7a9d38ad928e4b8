package repository

import (
	"context"
	"errors"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipStore persists users, clan members and site staff assignments,
// and resolves the roles the permission checks run against.
type MembershipStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserForUpdate(ctx context.Context, id uint) (*models.User, error)
	SetPlatformBanned(ctx context.Context, userID uint, banned bool) error

	// ResolveSiteRole returns the user's site role, SiteRoleUser when unassigned.
	ResolveSiteRole(ctx context.Context, userID uint) (models.SiteRole, error)
	// ResolveClanRole returns the user's clan role and whether they are a member at all.
	ResolveClanRole(ctx context.Context, userID, clanID uint) (models.ClanRole, bool, error)

	GetStaffAssignment(ctx context.Context, userID uint) (*models.SiteStaffAssignment, error)
	UpsertStaffAssignment(ctx context.Context, assignment *models.SiteStaffAssignment) error
	DeleteStaffAssignment(ctx context.Context, userID uint) error
	ListStaff(ctx context.Context) ([]models.SiteStaffAssignment, error)

	// FindMember returns nil, nil when the user is not a member of the clan.
	FindMember(ctx context.Context, userID, clanID uint) (*models.ClanMember, error)
	GetMember(ctx context.Context, id uint) (*models.ClanMember, error)
	GetMemberForUpdate(ctx context.Context, id uint) (*models.ClanMember, error)
	CreateMember(ctx context.Context, member *models.ClanMember) error
	DeleteMember(ctx context.Context, id uint) error
	UpdateMemberRole(ctx context.Context, id uint, from, to models.ClanRole) error
	SetMemberBanned(ctx context.Context, id uint, banned bool) error
	ListMembers(ctx context.Context, clanID uint) ([]models.ClanMember, error)
	ListMembersWithRole(ctx context.Context, clanID uint, role models.ClanRole) ([]models.ClanMember, error)
	// ListClanIDsForUser returns the ids of every clan userID belongs to.
	ListClanIDsForUser(ctx context.Context, userID uint) ([]uint, error)
}

type membershipStore struct {
	db *gorm.DB
}

// NewMembershipStore creates a new MembershipStore.
func NewMembershipStore(db *gorm.DB) MembershipStore {
	return &membershipStore{db: db}
}

func (r *membershipStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *membershipStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("StaffAssignment").First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *membershipStore) GetUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := forUpdate(r.db.WithContext(ctx)).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *membershipStore) SetPlatformBanned(ctx context.Context, userID uint, banned bool) error {
	return guarded(r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND platform_banned = ?", userID, !banned).
		Update("platform_banned", banned))
}

func (r *membershipStore) ResolveSiteRole(ctx context.Context, userID uint) (models.SiteRole, error) {
	assignment, err := r.GetStaffAssignment(ctx, userID)
	if err != nil {
		return models.SiteRoleUser, err
	}
	if assignment == nil || !assignment.Role.Valid() {
		return models.SiteRoleUser, nil
	}
	return assignment.Role, nil
}

func (r *membershipStore) ResolveClanRole(ctx context.Context, userID, clanID uint) (models.ClanRole, bool, error) {
	member, err := r.FindMember(ctx, userID, clanID)
	if err != nil {
		return models.ClanRoleMember, false, err
	}
	if member == nil {
		return models.ClanRoleMember, false, nil
	}
	return member.Role, true, nil
}

func (r *membershipStore) GetStaffAssignment(ctx context.Context, userID uint) (*models.SiteStaffAssignment, error) {
	var assignment models.SiteStaffAssignment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &assignment, nil
}

func (r *membershipStore) UpsertStaffAssignment(ctx context.Context, assignment *models.SiteStaffAssignment) error {
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "assigned_by_user_id", "updated_at"}),
	}).Create(assignment).Error)
}

func (r *membershipStore) DeleteStaffAssignment(ctx context.Context, userID uint) error {
	return guarded(r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SiteStaffAssignment{}))
}

func (r *membershipStore) ListStaff(ctx context.Context) ([]models.SiteStaffAssignment, error) {
	var staff []models.SiteStaffAssignment
	if err := r.db.WithContext(ctx).Order("user_id ASC").Find(&staff).Error; err != nil {
		return nil, translate(err)
	}
	return staff, nil
}

func (r *membershipStore) FindMember(ctx context.Context, userID, clanID uint) (*models.ClanMember, error) {
	var member models.ClanMember
	err := r.db.WithContext(ctx).Where("user_id = ? AND clan_id = ?", userID, clanID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *membershipStore) GetMember(ctx context.Context, id uint) (*models.ClanMember, error) {
	var member models.ClanMember
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, notFoundOr(err, "Clan member", id)
	}
	return &member, nil
}

func (r *membershipStore) GetMemberForUpdate(ctx context.Context, id uint) (*models.ClanMember, error) {
	var member models.ClanMember
	if err := forUpdate(r.db.WithContext(ctx)).First(&member, id).Error; err != nil {
		return nil, notFoundOr(err, "Clan member", id)
	}
	return &member, nil
}

func (r *membershipStore) CreateMember(ctx context.Context, member *models.ClanMember) error {
	err := translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error)
	if models.HasCode(err, models.CodeConflict) {
		return models.NewConflictError(models.ReasonAlreadyMember, "User is already a member of this clan")
	}
	return err
}

func (r *membershipStore) DeleteMember(ctx context.Context, id uint) error {
	return guarded(r.db.WithContext(ctx).Delete(&models.ClanMember{}, id))
}

func (r *membershipStore) UpdateMemberRole(ctx context.Context, id uint, from, to models.ClanRole) error {
	return guarded(r.db.WithContext(ctx).Model(&models.ClanMember{}).
		Where("id = ? AND role = ?", id, from).
		Updates(map[string]interface{}{"role": to, "updated_at": time.Now()}))
}

func (r *membershipStore) SetMemberBanned(ctx context.Context, id uint, banned bool) error {
	return guarded(r.db.WithContext(ctx).Model(&models.ClanMember{}).
		Where("id = ? AND banned = ?", id, !banned).
		Update("banned", banned))
}

func (r *membershipStore) ListMembers(ctx context.Context, clanID uint) ([]models.ClanMember, error) {
	var members []models.ClanMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("clan_id = ?", clanID).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (r *membershipStore) ListMembersWithRole(ctx context.Context, clanID uint, role models.ClanRole) ([]models.ClanMember, error) {
	var members []models.ClanMember
	if err := r.db.WithContext(ctx).
		Where("clan_id = ? AND role = ?", clanID, role).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, translate(err)
	}
	return members, nil
}

func (r *membershipStore) ListClanIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.ClanMember{}).
		Where("user_id = ?", userID).
		Order("clan_id ASC").
		Pluck("clan_id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}
